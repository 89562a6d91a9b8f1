package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Event is one decoded message routed to a single instrument. Exactly one of
// Volume or Ticker is set.
type Event struct {
	Symbol string
	Volume *VolumeUpdate
	Ticker *TickerUpdate
}

// VolumeUpdate carries the rolling volume of the current 1-minute candle.
type VolumeUpdate struct {
	CurrentMinuteVolume float64
}

// TickerUpdate carries the latest close price and the 24h window open.
type TickerUpdate struct {
	Close float64
	Open  float64
}

// ErrMalformedMessage marks a frame that could not be decoded. Such frames are
// logged and dropped; they never stop the consumer loop.
var ErrMalformedMessage = errors.New("stream: malformed message")

const (
	eventKline      = "kline"
	eventMiniTicker = "24hrMiniTicker"
)

// combinedFrame is the envelope of the multiplexed stream endpoint.
type combinedFrame struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type eventEnvelope struct {
	EventType string `json:"e"`
}

type klinePayload struct {
	Symbol string `json:"s"`
	Kline  struct {
		Volume string `json:"v"`
		Close  string `json:"c"`
	} `json:"k"`
}

type miniTickerPayload struct {
	Symbol string `json:"s"`
	Close  string `json:"c"`
	Open   string `json:"o"`
}

// decodeFrame parses one raw frame into (stream key, event). The stream key is
// the lower-cased identifier before the '@' separator, used for routing.
func decodeFrame(raw []byte) (string, Event, error) {
	var frame combinedFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", Event{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if frame.Stream == "" || len(frame.Data) == 0 {
		return "", Event{}, fmt.Errorf("%w: missing stream or data", ErrMalformedMessage)
	}

	key, _, found := strings.Cut(frame.Stream, "@")
	if !found || key == "" {
		return "", Event{}, fmt.Errorf("%w: stream identifier %q", ErrMalformedMessage, frame.Stream)
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(frame.Data, &envelope); err != nil {
		return "", Event{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch envelope.EventType {
	case eventKline:
		var payload klinePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return "", Event{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		volume, err := parseWireDecimal(payload.Kline.Volume)
		if err != nil {
			return "", Event{}, fmt.Errorf("%w: kline volume: %v", ErrMalformedMessage, err)
		}
		return key, Event{Volume: &VolumeUpdate{CurrentMinuteVolume: volume}}, nil

	case eventMiniTicker:
		var payload miniTickerPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return "", Event{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		closePrice, err := parseWireDecimal(payload.Close)
		if err != nil {
			return "", Event{}, fmt.Errorf("%w: ticker close: %v", ErrMalformedMessage, err)
		}
		openPrice, err := parseWireDecimal(payload.Open)
		if err != nil {
			return "", Event{}, fmt.Errorf("%w: ticker open: %v", ErrMalformedMessage, err)
		}
		return key, Event{Ticker: &TickerUpdate{Close: closePrice, Open: openPrice}}, nil

	default:
		return "", Event{}, fmt.Errorf("%w: event type %q", ErrMalformedMessage, envelope.EventType)
	}
}

func parseWireDecimal(raw string) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
