//go:build rp2040 && (ninafw || challenger_rp2040)

// Command device is the firmware entry point for RP2040 boards with a
// netlink-capable radio (Arduino Nano RP2040 Connect, Challenger RP2040 WiFi).
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/netdev"
	"tinygo.org/x/drivers/netlink/probe"

	"devicelink-go/bus"
	"devicelink-go/services/config"
	"devicelink-go/services/logrelay"
	"devicelink-go/services/sntp"
	"devicelink-go/services/udplog"
	"devicelink-go/services/wlan"
	"devicelink-go/services/wlan/netlinkradio"
	"devicelink-go/types"
)

const deviceID = "nano-rp2040"

func halt(msg string, err error) {
	println("[main]", msg, err.Error())
	for {
		time.Sleep(time.Hour)
	}
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot")

	console := uartx.UART0
	if err := console.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.Pin(0),
		RX:       machine.Pin(1),
	}); err != nil {
		halt("console:", err)
	}

	ctx := context.Background()
	b := bus.NewBus(8)
	cfgConn := b.NewConnection("config")
	if err := config.NewConfigService().Start(context.WithValue(ctx, config.CtxDeviceKey, deviceID), cfgConn); err != nil {
		halt("config:", err)
	}
	raw, _ := config.Lookup[types.WLANConfig](cfgConn, "wlan")
	wcfg := wlan.ConfigFrom(raw)

	link, dev := probe.Probe()
	netdev.UseNetdev(dev)
	radio := netlinkradio.New(link)

	sender := udplog.New(udplog.Options{})

	var sup *wlan.Supervisor
	relay := logrelay.New(logrelay.Options{
		Console:    console,
		Sender:     sender,
		LinkUp:     func() bool { return sup != nil && sup.IsConnected() },
		DeferRelay: true,
	})

	sntpCfg, _ := config.Lookup[types.SNTPConfig](cfgConn, "sntp")
	ts := sntp.New(sntp.Options{Server: sntpCfg.Server, Log: relay.Logger(types.SubsystemSNTP)})

	var err error
	sup, err = wlan.New(wcfg, wlan.Deps{
		Probe:       radio,
		Radio:       radio,
		TimeSync:    ts,
		SideChannel: sender,
		Log:         relay.Logger(types.SubsystemWLAN),
		Conn:        b.NewConnection("wlan"),
	})
	if err != nil {
		halt("wlan:", err)
	}
	if err := logrelay.NewService(relay).Start(ctx, b.NewConnection("log")); err != nil {
		halt("log:", err)
	}

	relay.MarkRunning()
	go relay.Run(ctx)
	if err := sup.Initialize(ctx); err != nil {
		halt("startup failed:", err)
	}
	relay.Logger(types.SubsystemMain).In("main.go").At("main", 96).Infof("up, ssid %s", wcfg.SSID)

	select {}
}
