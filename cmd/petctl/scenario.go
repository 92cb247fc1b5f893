package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/client"
	"github.com/danmuck/tamactl/internal/protocol/scale"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/danmuck/tamactl/internal/world"
	"gopkg.in/yaml.v3"
)

var errExpectation = errors.New("scenario expectation failed")

// scenario is a scripted sequence of pet requests and clock steps.
type scenario struct {
	Name  string `yaml:"name"`
	Steps []step `yaml:"steps"`
}

// step is either a clock advance, a token switch, or one request.
type step struct {
	Advance   uint64 `yaml:"advance,omitempty"`
	Silence   *bool  `yaml:"silence_token,omitempty"`
	As        string `yaml:"as,omitempty"`
	Request   string `yaml:"request,omitempty"`
	Account   string `yaml:"account,omitempty"`
	Amount    string `yaml:"amount,omitempty"`
	Store     string `yaml:"store,omitempty"`
	Attribute uint32 `yaml:"attribute,omitempty"`
	Gas       uint64 `yaml:"gas,omitempty"`
	Duration  uint32 `yaml:"duration,omitempty"`
	Expect    string `yaml:"expect,omitempty"`
}

type stepResult struct {
	Index   int    `json:"index"`
	Block   uint64 `json:"block"`
	Actor   string `json:"actor,omitempty"`
	Action  string `json:"action"`
	Reply   string `json:"reply,omitempty"`
	Outcome string `json:"outcome"`
}

func loadScenario(path string) (scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scenario{}, fmt.Errorf("load scenario (%s): %w", path, err)
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (scenario, error) {
	var sc scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	for i, s := range sc.Steps {
		if s.Advance == 0 && s.Silence == nil && strings.TrimSpace(s.Request) == "" {
			return scenario{}, fmt.Errorf("step %d: needs advance, silence_token or request", i+1)
		}
		if s.Request != "" {
			if _, err := parseRequestKind(s.Request); err != nil {
				return scenario{}, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return sc, nil
}

var requestKinds = []wire.RequestKind{
	wire.RequestName, wire.RequestAge, wire.RequestFeed, wire.RequestPlay, wire.RequestSleep,
	wire.RequestTransfer, wire.RequestApprove, wire.RequestRevokeApproval, wire.RequestApproveTokens,
	wire.RequestSetFTokenContract, wire.RequestBuyAttribute, wire.RequestCheckState,
	wire.RequestReserveGas, wire.RequestOwner,
}

func normalizeName(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
}

// parseRequestKind accepts the request name in any case, with or without underscores.
func parseRequestKind(name string) (wire.RequestKind, error) {
	want := normalizeName(name)
	for _, k := range requestKinds {
		if normalizeName(k.String()) == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown request %q", name)
}

func (s step) request() (wire.Request, error) {
	kind, err := parseRequestKind(s.Request)
	if err != nil {
		return wire.Request{}, err
	}
	req := wire.Request{
		Kind:              kind,
		AttributeID:       s.Attribute,
		ReservationAmount: s.Gas,
		Duration:          s.Duration,
	}
	if s.Account != "" {
		req.Account = actor.ResolveID(s.Account)
	}
	if s.Store != "" {
		req.StoreID = actor.ResolveID(s.Store)
	}
	if s.Amount != "" {
		if req.Amount, err = scale.ParseU128(s.Amount); err != nil {
			return wire.Request{}, err
		}
	}
	return req, nil
}

// runScenario plays sc against w. Every step runs; the error reports the
// first failed expectation.
func runScenario(ctx context.Context, w *world.World, sc scenario) ([]stepResult, error) {
	local := client.Local{World: w}
	results := make([]stepResult, 0, len(sc.Steps))
	var firstErr error
	for i, s := range sc.Steps {
		res := stepResult{Index: i + 1, Outcome: "ok"}
		switch {
		case s.Advance > 0:
			res.Action = fmt.Sprintf("advance %d", s.Advance)
			delivered, err := w.Runtime.Advance(ctx, s.Advance)
			res.Reply = fmt.Sprintf("delivered=%d", delivered)
			if err != nil {
				res.Outcome = "error: " + err.Error()
			}
		case s.Silence != nil:
			w.Token.Silence(*s.Silence)
			res.Action = fmt.Sprintf("silence_token %t", *s.Silence)
		default:
			src := strings.TrimSpace(s.As)
			if src == "" {
				src = w.Config.Pet.Owner
			}
			res.Actor = src
			req, err := s.request()
			if err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
			res.Action = req.Kind.String()
			ev, err := client.New(local, actor.ResolveID(src)).Do(ctx, req)
			switch {
			case err != nil:
				res.Reply = "-"
				res.Outcome = "error: " + err.Error()
			case ev == nil:
				res.Reply = "none"
			default:
				res.Reply = ev.Kind.String()
			}
			if want := strings.TrimSpace(s.Expect); want != "" && normalizeName(want) != normalizeName(res.Reply) {
				res.Outcome = fmt.Sprintf("expected %s", want)
				if firstErr == nil {
					firstErr = fmt.Errorf("%w: step %d %s replied %s, want %s", errExpectation, i+1, res.Action, res.Reply, want)
				}
			}
		}
		res.Block = w.Runtime.Now()
		results = append(results, res)
	}
	return results, firstErr
}
