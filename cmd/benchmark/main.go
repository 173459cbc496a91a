// benchmark spins up many concurrent mqttclient.Client connections
// against one broker and has each publish on a timer while subscribed to
// every other connection's topic, the same many-client load shape the
// teacher's benchmark main.go exercised against its own in-process
// broker — adapted here to drive the new engine+ioloop client instead.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/driftwave/mqttclient"
	"github.com/driftwave/mqttclient/packet"
)

func main() {
	group, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 100; i++ {
		i := i
		c, err := mqttclient.New(
			mqttclient.WithURL("mqtt://127.0.0.1:1883"),
			mqttclient.WithClientID(fmt.Sprintf("bench-%d", i)),
		)
		if err != nil {
			panic(err)
		}

		c.OnMessage(func(topic string, payload []byte, qos uint8, retained bool) bool {
			log.Printf("id=%s topic=%s payload=%s", c.ID(), topic, payload)
			return true
		})

		group.Go(func() error {
			if err := c.WaitForCompletion(c.Connect(ctx), 10*time.Second); err != nil {
				return err
			}
			if err := c.WaitForCompletion(c.Subscribe("+", 0), 10*time.Second); err != nil {
				return err
			}

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					c.Publish(fmt.Sprintf("topic-%d", i), []byte("hello world"), 0, false)
				}
			}
		})
	}
	if err := group.Wait(); err != nil {
		panic(err)
	}
}
