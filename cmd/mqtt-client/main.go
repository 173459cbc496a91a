// mqtt-client is a thin CLI front end over the mqttclient package: a
// long-running "connect" subcommand that subscribes and logs inbound
// messages, and one-shot "pub"/"sub" subcommands for scripting, in the
// spirit of hlindberg-mezquit's cmd/pub.go flag surface but built on
// cobra subcommands and a YAML config file instead of one flat flag set.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/driftwave/mqttclient"
)

// config is the shape of the YAML file --config points at; the string
// fields (url, client_id, username, password, trace_level) can be
// overridden by an MQTTCLIENT_* environment variable via viper.
type config struct {
	URL        string        `yaml:"url"`
	ClientID   string        `yaml:"client_id"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	KeepAlive  time.Duration `yaml:"keep_alive"`
	CleanStart bool          `yaml:"clean_start"`
	TraceLevel string        `yaml:"trace_level"`
}

func defaultConfig() config {
	return config{
		URL:        "mqtt://127.0.0.1:1883",
		KeepAlive:  30 * time.Second,
		CleanStart: true,
		TraceLevel: "info",
	}
}

// loadConfig decodes --config (if given) with yaml.v3, then lets any
// already-set MQTTCLIENT_* environment variable bound through viper
// override individual fields — the file sets the baseline, the
// environment wins for per-deployment overrides.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("mqttclient")
	v.AutomaticEnv()
	for _, key := range []string{"url", "client_id", "username", "password", "trace_level"} {
		if val := v.GetString(key); val != "" {
			switch key {
			case "url":
				cfg.URL = val
			case "client_id":
				cfg.ClientID = val
			case "username":
				cfg.Username = val
			case "password":
				cfg.Password = val
			case "trace_level":
				cfg.TraceLevel = val
			}
		}
	}
	return cfg, nil
}

func newClient(cfg config) (*mqttclient.Client, error) {
	opts := []mqttclient.Option{
		mqttclient.WithURL(cfg.URL),
		mqttclient.WithCleanStart(cfg.CleanStart),
		mqttclient.WithKeepAlive(cfg.KeepAlive),
		mqttclient.WithTrace(cfg.TraceLevel, ""),
	}
	if cfg.ClientID != "" {
		opts = append(opts, mqttclient.WithClientID(cfg.ClientID))
	}
	if cfg.Username != "" {
		opts = append(opts, mqttclient.WithCredentials(cfg.Username, cfg.Password))
	}
	return mqttclient.New(opts...)
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mqtt-client",
	Short: "A small MQTT client for interactive connect/pub/sub testing",
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect, subscribe to a filter, and log every inbound message until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		c, err := newClient(cfg)
		if err != nil {
			return err
		}
		c.OnMessage(func(topic string, payload []byte, qos uint8, retained bool) bool {
			log.Printf("[%s] qos=%d retained=%v %s", topic, qos, retained, payload)
			return true
		})

		ctx, cancel := context.WithCancel(context.Background())
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		go func() {
			<-sig
			cancel()
		}()

		if err := c.WaitForCompletion(c.Connect(ctx), 10*time.Second); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		if err := c.WaitForCompletion(c.Subscribe(filter, 0), 10*time.Second); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}

		<-ctx.Done()
		return c.Destroy(5 * time.Second)
	},
}

var pubCmd = &cobra.Command{
	Use:   "pub",
	Short: "Connect, publish one message, and disconnect",
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		message, _ := cmd.Flags().GetString("message")
		qosFlag, _ := cmd.Flags().GetInt("qos")
		retain, _ := cmd.Flags().GetBool("retain")
		qos := uint8(qosFlag)

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		c, err := newClient(cfg)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if err := c.WaitForCompletion(c.Connect(ctx), 10*time.Second); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		if err := c.WaitForCompletion(c.Publish(topic, []byte(message), qos, retain), 10*time.Second); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		return c.Destroy(5 * time.Second)
	},
}

var subCmd = &cobra.Command{
	Use:   "sub",
	Short: "Connect, subscribe to a filter, print messages for a duration, then disconnect",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		duration, _ := cmd.Flags().GetDuration("duration")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		c, err := newClient(cfg)
		if err != nil {
			return err
		}
		c.OnMessage(func(topic string, payload []byte, qos uint8, retained bool) bool {
			fmt.Printf("%s %s\n", topic, payload)
			return true
		})

		ctx, cancel := context.WithTimeout(context.Background(), duration)
		defer cancel()
		if err := c.WaitForCompletion(c.Connect(ctx), 10*time.Second); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		if err := c.WaitForCompletion(c.Subscribe(filter, 0), 10*time.Second); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		<-ctx.Done()
		return c.Destroy(5 * time.Second)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	connectCmd.Flags().StringP("filter", "f", "#", "topic filter to subscribe to")
	pubCmd.Flags().StringP("topic", "t", "test", "topic to publish to")
	pubCmd.Flags().StringP("message", "m", "", "message payload")
	pubCmd.Flags().IntP("qos", "q", 0, "QoS 0-2")
	pubCmd.Flags().BoolP("retain", "r", false, "set the RETAIN flag")
	subCmd.Flags().StringP("filter", "f", "#", "topic filter to subscribe to")
	subCmd.Flags().Duration("duration", 10*time.Second, "how long to listen before disconnecting")

	rootCmd.AddCommand(connectCmd, pubCmd, subCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
