// echo-client connects to a relay, prints every event it receives and exits
// when the relay forwards a Shutdown event.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vrrelay/pkg/vrevent"
	"vrrelay/pkg/vrnet"
)

func main() {
	addr := flag.String("addr", "localhost:9034", "relay address (host:port)")
	announce := flag.String("announce", "", "send an empty event with this name after connecting")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	conn, err := vrnet.Dial(dialCtx, *addr)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", conn.Description())

	if *announce != "" {
		if err := conn.SendEvent(vrevent.NewEmpty(*announce), 5*time.Second); err != nil {
			log.Fatalf("Failed to send %q: %v", *announce, err)
		}
	}

	err = conn.Follow(ctx, func(e vrevent.Event) {
		fmt.Println(e)
	})
	switch {
	case err == nil:
		fmt.Println("shutdown received")
	case ctx.Err() != nil:
		fmt.Println("interrupted")
	default:
		log.Fatalf("Connection lost: %v", err)
	}
}
