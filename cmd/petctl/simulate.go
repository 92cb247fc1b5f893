package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/client"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func simulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Play a scripted scenario against an in-process world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			w, err := openWorld(cmd.Context())
			if err != nil {
				return err
			}
			defer w.Close()

			results, runErr := runScenario(cmd.Context(), w, sc)
			if viper.GetBool("json") {
				if err := printJSON(results); err != nil {
					return err
				}
			} else {
				renderResults(os.Stdout, sc.Name, results)
			}
			if st, err := w.Pet.Snapshot(); err == nil && !viper.GetBool("json") {
				renderState(os.Stdout, st, w.Runtime.Now())
			}
			return runErr
		},
	}
}

func sendCmd() *cobra.Command {
	var (
		url  string
		as   string
		item step
	)
	cmd := &cobra.Command{
		Use:   "send <request>",
		Short: "Send one request to a served world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item.Request = args[0]
			req, err := item.request()
			if err != nil {
				return err
			}
			c := client.New(client.NewHTTP(url), actor.ResolveID(as))
			ev, err := c.Do(cmd.Context(), req)
			var remote *client.RemoteError
			if errors.As(err, &remote) {
				return fmt.Errorf("%s refused (%d): %s", req.Kind, remote.Status, remote.Message)
			}
			if err != nil {
				return err
			}
			return printEvent(ev)
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://127.0.0.1:7080", "server base url")
	cmd.Flags().StringVar(&as, "as", "owner", "source actor (hex id or label)")
	cmd.Flags().StringVar(&item.Account, "account", "", "account argument")
	cmd.Flags().StringVar(&item.Amount, "amount", "", "token amount")
	cmd.Flags().StringVar(&item.Store, "store", "", "store actor")
	cmd.Flags().Uint32Var(&item.Attribute, "attribute", 0, "attribute id")
	cmd.Flags().Uint64Var(&item.Gas, "gas", 0, "reservation amount")
	cmd.Flags().Uint32Var(&item.Duration, "duration", 0, "reservation duration in blocks")
	return cmd
}

func printEvent(ev *wire.Event) error {
	if ev == nil {
		fmt.Println("no reply")
		return nil
	}
	if viper.GetBool("json") {
		return printJSON(ev)
	}
	switch ev.Kind {
	case wire.EventName:
		fmt.Printf("%s %q\n", ev.Kind, ev.Name)
	case wire.EventAge:
		fmt.Printf("%s %d\n", ev.Kind, ev.Age)
	case wire.EventTransfer, wire.EventApprove, wire.EventOwner:
		fmt.Printf("%s %s\n", ev.Kind, ev.Account)
	case wire.EventApproveTokens:
		fmt.Printf("%s %s %s\n", ev.Kind, ev.Account, ev.Amount)
	case wire.EventAttributeBought, wire.EventCompletePrevPurchase:
		fmt.Printf("%s %d\n", ev.Kind, ev.AttributeID)
	default:
		fmt.Println(ev.Kind)
	}
	return nil
}

func advanceCmd() *cobra.Command {
	var url, token string
	cmd := &cobra.Command{
		Use:   "advance <blocks>",
		Short: "Advance the clock of a served world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse blocks: %w", err)
			}
			tr := client.NewHTTP(url)
			tr.Token = token
			if tr.Token == "" {
				tr.Token = viper.GetString("token")
			}
			block, err := tr.Advance(cmd.Context(), n)
			if err != nil {
				return err
			}
			fmt.Printf("block %d\n", block)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://127.0.0.1:7080", "server base url")
	cmd.Flags().StringVar(&token, "token", "", "admin bearer token")
	_ = viper.BindPFlag("token", cmd.Flags().Lookup("token"))
	return cmd
}
