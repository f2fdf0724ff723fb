/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/userauth/apiserver/config"
	"github.com/userauth/apiserver/internal/events"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with the auth event stream",
}

var eventsListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Consume auth events from the configured broker and print them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		var backend events.Backend
		switch cfg.Events.Backend {
		case "rabbitmq":
			client, err := events.NewRabbitMQClient(cfg.Events.RabbitMQ)
			if err != nil {
				return err
			}
			backend = client
		case "pubsub":
			client, err := events.NewPubSubClient(cmd.Context(), cfg.Events.PubSub)
			if err != nil {
				return err
			}
			backend = client
		default:
			return errors.New("EVENTS_BACKEND must be rabbitmq or pubsub")
		}

		publisher := events.NewPublisher(backend)
		defer func() {
			_ = publisher.Close()
		}()

		return publisher.Subscribe(cmd.Context(), func(ctx context.Context, msg events.Message) error {
			fmt.Printf("%s %s\n", msg.Attributes["type"], msg.Data)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListenCmd)
}
