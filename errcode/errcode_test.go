package errcode

import (
	"errors"
	"io"
	"testing"
)

func TestOf(t *testing.T) {
	if got := Of(nil); got != OK {
		t.Fatalf("Of(nil) = %q, want %q", got, OK)
	}
	if got := Of(Timeout); got != Timeout {
		t.Fatalf("Of(Code) = %q, want %q", got, Timeout)
	}
	if got := Of(Wrap(ConnectFailed, "wlan.connect", io.EOF)); got != ConnectFailed {
		t.Fatalf("Of(*E) = %q, want %q", got, ConnectFailed)
	}
	if got := Of(errors.New("plain")); got != Error {
		t.Fatalf("Of(plain) = %q, want %q", got, Error)
	}
}

func TestE_UnwrapAndMessage(t *testing.T) {
	e := Wrap(StartupFailed, "wlan.Initialize", io.EOF)
	if !errors.Is(e, io.EOF) {
		t.Fatal("errors.Is should see the wrapped cause")
	}
	if got, want := e.Error(), "wlan.Initialize: startup_failed: EOF"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if got, want := New(InvalidConfig, "", "ssid required").Error(), "invalid_config: ssid required"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
