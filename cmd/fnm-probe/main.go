package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/mtasaka/fastnetmon/internal/probe"
	"github.com/mtasaka/fastnetmon/internal/telemetry"
)

const (
	snapshotLen int32 = 1600
	promiscuous       = true
	timeout           = pcap.BlockForever
)

func main() {
	iface := flag.String("iface", "", "Interface to capture mirrored traffic from (required).")
	natsURL := flag.String("nats", nats.DefaultURL, "NATS server URL.")
	subject := flag.String("subject", "fnm.packets.raw", "NATS subject for packet records.")
	format := flag.String("format", "protobuf", "Record encoding: json or protobuf.")
	withPayload := flag.Bool("payload", false, "Carry leading frame bytes for attack capture.")
	flag.Parse()

	log := logrus.New()

	if *iface == "" {
		log.Error("-iface flag is required")
		flag.Usage()
		os.Exit(1)
	}
	recordFormat, err := probe.ParseFormat(*format)
	if err != nil {
		log.WithError(err).Error("invalid record format")
		os.Exit(1)
	}

	pub, err := probe.NewPublisher(*natsURL, *subject, recordFormat, log)
	if err != nil {
		log.WithError(err).Error("failed to connect to NATS")
		os.Exit(1)
	}
	defer pub.Close()

	handle, err := pcap.OpenLive(*iface, snapshotLen, promiscuous, timeout)
	if err != nil {
		log.WithError(err).WithField("iface", *iface).Error("failed to open capture device")
		os.Exit(1)
	}
	defer handle.Close()

	log.WithField("iface", *iface).Info("mirror capture started, publishing packet records")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		decoder := telemetry.NewRawDecoder(*withPayload)
		source := gopacket.NewPacketSource(handle, handle.LinkType())
		published := 0
		for packet := range source.Packets() {
			ts := packet.Metadata().Timestamp
			if ts.IsZero() {
				ts = time.Now()
			}
			pkt, err := decoder.Decode(packet.Data(), 0, 1, ts.UnixNano())
			if err != nil {
				continue
			}
			if err := pub.Publish(&pkt); err != nil {
				log.WithError(err).Warn("failed to publish packet record")
				continue
			}
			published++
			if published%100000 == 0 {
				log.WithField("published", published).Info("probe progress")
			}
		}
	}()

	<-sigChan
	log.Info("shutdown signal received, stopping probe")
}
