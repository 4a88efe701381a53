/*
Copyright (c) The pnet-rt Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
pnetd runs the Provider Protocol Machine and LLDP engines against one
network interface: a single statically configured AR with one input IOCR,
cyclically transmitted over a raw socket, plus the periodic LLDP broadcast
and peer-expiry watch on the same link.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/profinet-go/pnet-rt/pnet/ar"
	"github.com/profinet-go/pnet-rt/pnet/diag"
	"github.com/profinet-go/pnet-rt/pnet/lldp"
	"github.com/profinet-go/pnet-rt/pnet/metrics"
	"github.com/profinet-go/pnet-rt/pnet/ppm"
	"github.com/profinet-go/pnet-rt/pnet/timer"
	"github.com/profinet-go/pnet-rt/pnet/transport"
)

func main() {
	var cfg Config

	flag.StringVar(&cfg.Interface, "iface", "eth0", "network interface to transmit and capture on")
	flag.StringVar(&cfg.IP, "ip", "", "this station's IPv4 address, advertised in the LLDP management address TLV")
	flag.StringVar(&cfg.LogLevel, "loglevel", "info", "log level: debug, info, warning, error")
	flag.IntVar(&cfg.MonitoringPort, "monitoringport", 8080, "port serving /metrics and /stats")
	flag.StringVar(&cfg.ConfigFile, "config", "", "path to the dynamic configuration YAML file")
	flag.BoolVar(&cfg.Cooperative, "cooperative", false, "drive PPM instances off a single cooperative scheduler instead of per-instance OS timers")
	flag.Parse()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("pnetd: bad -loglevel %q: %v", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if cfg.ConfigFile == "" {
		log.Fatal("pnetd: -config is required")
	}
	dc, err := readDynamicConfig(cfg.ConfigFile)
	if err != nil {
		log.Fatalf("pnetd: %v", err)
	}
	cfg.DynamicConfig = *dc
	if err := cfg.resolveMACs(); err != nil {
		log.Fatalf("pnetd: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	iface, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		log.Fatalf("pnetd: resolving interface %q: %v", cfg.Interface, err)
	}

	sock, err := transport.NewRawSocket(iface.Index)
	if err != nil {
		log.Fatalf("pnetd: %v", err)
	}
	defer sock.Close()

	alloc := transport.PoolAllocator{}
	cm := logConnectionManager{}
	diagStore := newMemDiagStore()
	alarm := logAlarmSender{}

	devCfg := diag.DeviceConfig{
		DAPSlot:      dc.DAPSlot,
		Port0Subslot: dc.Port0Subslot,
		StationName:  dc.ChassisID,
		ChassisMAC:   cfg.deviceMAC,
	}
	configProvider := staticConfigProvider{cfg: devCfg}

	iocr := &ar.IOCR{
		Type:            ar.IOCRInput,
		FrameID:         dc.FrameID,
		CSDULength:      dc.CSDULength,
		SendClockFactor: dc.SendClockFactor,
		ReductionRatio:  dc.ReductionRatio,
		VID:             dc.VID,
		Priority:        dc.Priority,
		InitiatorMAC:    cfg.initiatorMAC,
		ResponderMAC:    cfg.deviceMAC,
	}
	conn := ar.New(1, 0, []*ar.IOCR{iocr})
	conn.InUse = true
	arProvider := &staticARProvider{}
	arProvider.set(conn)

	ppmEngine := ppm.New(ppm.Config{
		Cooperative: cfg.Cooperative,
		Sender:      sock,
		Alloc:       alloc,
		CM:          cm,
		EthHandle:   0,
		StackCycle:  timer.StackTick,
		Scheduler:   timer.NewScheduler(),
	})

	io := []*ppm.IOData{}
	inst := ppmEngine.NewInstance(conn, iocr, io)
	if err := inst.Activate(); err != nil {
		log.Fatalf("pnetd: activating PPM instance: %v", err)
	}
	defer inst.Close()
	log.Infof("pnetd: PPM instance running on %s, frame id 0x%04x", cfg.Interface, dc.FrameID)

	lldpEngine := lldp.New(
		lldp.Config{
			ChassisID:          dc.ChassisID,
			PortID:             dc.PortID,
			TTL:                dc.TTLSec,
			RTClass2PortStatus: dc.RTClass2PortStatus,
			RTClass3PortStatus: dc.RTClass3PortStatus,
			MACPhyCapAneg:      dc.MACPhyCapAneg,
			MACPhyCapPHY:       dc.MACPhyCapPHY,
			MACPhyMAUType:      dc.MACPhyMAUType,
			DeviceMAC:          cfg.deviceMAC,
		},
		lldp.Deps{
			Sender:    sock,
			Alloc:     alloc,
			Addr:      staticAddressProvider{ip: net.ParseIP(cfg.IP)},
			Subslot:   staticSubslotLookup{},
			Store:     diagStore,
			Alarm:     alarm,
			DevConfig: configProvider,
			NetID:     0,
			EthHandle: 0,
		},
		arProvider,
		func(name string) timer.Timer { return timer.NewPreemptiveTimer() },
	)
	lldpEngine.StartBroadcast(lldp.BroadcastRate)
	defer lldpEngine.StopBroadcast()

	capture, err := transport.OpenCapture(cfg.Interface)
	if err != nil {
		log.Fatalf("pnetd: %v", err)
	}
	defer capture.Close()
	go capture.Run(ctx, func(frame []byte, ethHeaderLen int) {
		if err := lldpEngine.Recv(frame, ethHeaderLen); err != nil {
			log.Warnf("lldp: parsing received frame: %v", err)
		}
	})

	exporter := metrics.NewExporter(ppmEngine.Stats)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				exporter.Scrape()
			}
		}
	}()
	go func() {
		addr := fmt.Sprintf(":%d", cfg.MonitoringPort)
		log.Infof("pnetd: serving monitoring endpoints on %s", addr)
		if err := http.ListenAndServe(addr, exporter.Handler()); err != nil {
			log.Errorf("pnetd: monitoring server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("pnetd: shutting down")
	cancel()
}
