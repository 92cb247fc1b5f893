package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/protocol/frame"
	"github.com/danmuck/tamactl/internal/world"
)

// Transport carries pet requests and clock steps.
type Transport interface {
	// Handle returns the raw reply, or nil when the pet replied nothing.
	Handle(ctx context.Context, source actor.ID, payload []byte) ([]byte, error)
	// Advance moves the clock n blocks and returns the new block.
	Advance(ctx context.Context, n uint64) (uint64, error)
}

// Local drives an in-process world.
type Local struct {
	World *world.World
}

func (l Local) Handle(ctx context.Context, source actor.ID, payload []byte) ([]byte, error) {
	return l.World.Send(ctx, source, l.World.PetID, payload)
}

func (l Local) Advance(ctx context.Context, n uint64) (uint64, error) {
	if _, err := l.World.Runtime.Advance(ctx, n); err != nil {
		return 0, err
	}
	return l.World.Runtime.Now(), nil
}

// HTTP talks to a served world.
type HTTP struct {
	BaseURL string
	Client  *http.Client
	// Token is sent as a bearer token on clock control.
	Token string
}

func NewHTTP(baseURL string) *HTTP {
	return &HTTP{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HTTP) Handle(ctx context.Context, source actor.ID, payload []byte) ([]byte, error) {
	body, err := frame.Marshal(frame.Frame{
		Header:  frame.Header{MessageID: actor.NewMessageID().Uint64(), MessageType: frame.TypeHandle},
		Auth:    source[:],
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/pet/handle", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-tama-frame")
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	out, err := frame.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("client: http %d: %w", resp.StatusCode, err)
	}
	switch {
	case out.Header.Flags&frame.FlagIsError != 0:
		return nil, &RemoteError{Status: resp.StatusCode, Message: string(out.Payload)}
	case out.Header.Flags&frame.FlagNoReply != 0:
		return nil, nil
	default:
		return out.Payload, nil
	}
}

func (h *HTTP) Advance(ctx context.Context, n uint64) (uint64, error) {
	url := h.BaseURL + "/blocks/advance?n=" + strconv.FormatUint(n, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return 0, err
	}
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var body struct {
		Block uint64 `json:"block"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("client: decode advance: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, &RemoteError{Status: resp.StatusCode, Message: body.Error}
	}
	return body.Block, nil
}
