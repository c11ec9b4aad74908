// Command relaydiag exercises the frame relay transport end to end: a
// serve side that accepts channels and verifies incoming frames, and a
// send side that streams synthetic frames at it. Useful for soak
// testing a deployment without a real intercepted application.
package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/relay"
	"github.com/gogpu/relay/diag"
	"github.com/gogpu/relay/frame"
	"github.com/gogpu/relay/transport"
)

var (
	host    string
	port    int
	useTLS  bool
	cert    string
	key     string
	verbose bool

	iterations int
	frames     int
	width      int
	height     int
	quality    int
	windowID   uint64

	diagAddr string
)

func main() {
	root := &cobra.Command{
		Use:   "relaydiag",
		Short: "Soak-test client and server for the frame relay transport",
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			relay.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&host, "host", "127.0.0.1", "peer host")
	root.PersistentFlags().IntVar(&port, "port", transport.DefaultPort, "peer port")
	root.PersistentFlags().BoolVar(&useTLS, "tls", false, "secure the channel")
	root.PersistentFlags().StringVar(&cert, "cert", "", "certificate file (serve with --tls)")
	root.PersistentFlags().StringVar(&key, "key", "", "private key file (serve with --tls)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	send := &cobra.Command{
		Use:   "send",
		Short: "Stream synthetic frames to a serve instance",
		RunE:  runSend,
	}
	send.Flags().IntVar(&iterations, "iterations", 5, "connection iterations")
	send.Flags().IntVar(&frames, "frames", 10, "frames per iteration")
	send.Flags().IntVar(&width, "width", 301, "frame width in pixels")
	send.Flags().IntVar(&height, "height", 301, "frame height in pixels")
	send.Flags().IntVar(&quality, "quality", 50, "compression quality, 1-100")
	send.Flags().Uint64Var(&windowID, "window", 1, "window handle stamped on each frame")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Accept channels and verify incoming frames",
		RunE:  runServe,
	}
	serve.Flags().StringVar(&diagAddr, "diag", "",
		"diagnostics listen address (falls back to RELAY_DIAG; empty disables)")

	root.AddCommand(send, serve)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// syntheticFrame builds frame n of the soak stream. Frames alternate
// between two solid fill values so the receiver can verify ordering
// survived the trip.
func syntheticFrame(n int) *frame.Descriptor {
	d := &frame.Descriptor{
		Quality:     quality,
		Subsampling: frame.Subsampling411,
		WindowID:    windowID,
		StripHeight: frame.DefaultStripHeight,
		Width:       width,
		Height:      height,
		Pixels:      make([]byte, width*height*frame.BytesPerPixel),
	}
	fill := fillValue(n)
	for i := range d.Pixels {
		d.Pixels[i] = fill
	}
	return d
}

func fillValue(n int) byte {
	if n%2 == 0 {
		return 0xaa
	}
	return 0x55
}

func runSend(cmd *cobra.Command, _ []string) error {
	for iter := 0; iter < iterations; iter++ {
		ch, err := dial()
		if err != nil {
			return err
		}
		sender := transport.NewSender(ch)
		for n := 0; n < frames; n++ {
			if err := sender.Enqueue(syntheticFrame(n)); err != nil {
				sender.Close()
				ch.Close()
				return err
			}
		}
		if err := sender.Close(); err != nil {
			ch.Close()
			return err
		}
		if err := ch.Close(); err != nil {
			return err
		}
		relay.Logger().Info("iteration complete", "iteration", iter, "frames", frames)
	}
	fmt.Printf("sent %d frames over %d connections\n", iterations*frames, iterations)
	return nil
}

func dial() (*transport.TCPChannel, error) {
	if useTLS {
		return transport.DialTLS(host, port, &tls.Config{InsecureSkipVerify: true})
	}
	return transport.Dial(host, port)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if diagAddr == "" {
		diagAddr = relay.CurrentConfig().DiagAddr
	}
	if diagAddr != "" {
		d, err := diag.Listen(diagAddr)
		if err != nil {
			return err
		}
		defer d.Close()
	}

	ln, err := transport.Listen(fmt.Sprintf("%s:%d", host, port), cert, key)
	if err != nil {
		return err
	}
	defer ln.Close()
	relay.Logger().Info("listening", "addr", ln.Addr(), "secured", ln.Secured())

	for {
		ch, err := ln.Accept()
		if err != nil {
			return err
		}
		go verifyStream(ch)
	}
}

// verifyStream receives frames until the peer closes and checks each
// one against the synthetic fill pattern.
func verifyStream(ch *transport.TCPChannel) {
	defer ch.Close()
	log := relay.Logger().With("remote", ch.RemoteName())

	for n := 0; ; n++ {
		d, err := transport.RecvFrame(ch)
		if err != nil {
			log.Info("stream ended", "frames", n, "err", err)
			return
		}
		if bad := verifyFill(d, fillValue(n)); bad >= 0 {
			log.Error("frame corrupt", "frame", n, "offset", bad)
			return
		}
		log.Debug("frame verified",
			"frame", n, "window", d.WindowID, "quality", d.Quality, "subsampling", d.Subsampling)
	}
}

// verifyFill returns the offset of the first byte that deviates from
// the expected fill, or -1 when the payload is clean.
func verifyFill(d *frame.Descriptor, fill byte) int {
	for i, b := range d.Pixels {
		if b != fill {
			return i
		}
	}
	return -1
}
