package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func TestStreamURL(t *testing.T) {
	got := StreamURL("wss://fstream.binance.com/stream", []string{"BTCUSDT", "ETHUSDT"})
	want := "wss://fstream.binance.com/stream?streams=btcusdt@kline_1m/btcusdt@miniTicker/ethusdt@kline_1m/ethusdt@miniTicker"
	if got != want {
		t.Fatalf("URL 不正确:\n%s\n%s", got, want)
	}
}

func TestDecodeKlineFrame(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@kline_1m","data":{"e":"kline","s":"BTCUSDT","k":{"v":"123.45","c":"64000.1"}}}`)

	key, ev, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if key != "btcusdt" {
		t.Fatalf("stream key 不正确: %s", key)
	}
	if ev.Volume == nil || ev.Ticker != nil {
		t.Fatalf("应为 volume 事件: %#v", ev)
	}
	if ev.Volume.CurrentMinuteVolume != 123.45 {
		t.Fatalf("成交量解析不正确: %f", ev.Volume.CurrentMinuteVolume)
	}
}

func TestDecodeMiniTickerFrame(t *testing.T) {
	raw := []byte(`{"stream":"ethusdt@miniTicker","data":{"e":"24hrMiniTicker","s":"ETHUSDT","c":"3400.5","o":"3200.0"}}`)

	key, ev, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if key != "ethusdt" {
		t.Fatalf("stream key 不正确: %s", key)
	}
	if ev.Ticker == nil || ev.Volume != nil {
		t.Fatalf("应为 ticker 事件: %#v", ev)
	}
	if ev.Ticker.Close != 3400.5 || ev.Ticker.Open != 3200.0 {
		t.Fatalf("价格解析不正确: %#v", ev.Ticker)
	}
}

func TestDecodeMalformedFrames(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`{"stream":"","data":{}}`),
		[]byte(`{"stream":"btcusdt","data":{"e":"kline"}}`),
		[]byte(`{"stream":"btcusdt@kline_1m","data":{"e":"unknownType"}}`),
		[]byte(`{"stream":"btcusdt@kline_1m","data":{"e":"kline","k":{"v":"oops"}}}`),
	}
	for i, raw := range cases {
		if _, _, err := decodeFrame(raw); err == nil {
			t.Fatalf("用例 %d 应返回解码错误", i)
		}
	}
}

var upgrader = websocket.Upgrader{}

func TestClientConsumesCombinedStream(t *testing.T) {
	frames := []string{
		`{"stream":"btcusdt@kline_1m","data":{"e":"kline","s":"BTCUSDT","k":{"v":"50","c":"100"}}}`,
		`{"stream":"btcusdt@miniTicker","data":{"e":"24hrMiniTicker","s":"BTCUSDT","c":"101","o":"100"}}`,
		`garbage`, // malformed, must be dropped without killing the loop
		`{"stream":"dogeusdt@kline_1m","data":{"e":"kline","s":"DOGEUSDT","k":{"v":"1","c":"1"}}}`, // unsubscribed
		`{"stream":"btcusdt@kline_1m","data":{"e":"kline","s":"BTCUSDT","k":{"v":"75","c":"102"}}}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade 失败: %v", err)
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client := NewClient(ClientOptions{BaseURL: wsURL, ReadTimeout: time.Second}, []string{"BTCUSDT"}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("连接失败: %v", err)
	}
	if client.Status() != StatusConnected {
		t.Fatalf("连接后状态应为 connected, 实际 %s", client.Status())
	}

	var events []Event
	for ev := range client.Events() {
		events = append(events, ev)
	}

	if len(events) != 3 {
		t.Fatalf("期望 3 个事件, 实际 %d: %#v", len(events), events)
	}
	if events[0].Volume == nil || events[0].Volume.CurrentMinuteVolume != 50 {
		t.Fatalf("首个事件不正确: %#v", events[0])
	}
	if events[1].Ticker == nil || events[1].Ticker.Close != 101 {
		t.Fatalf("第二个事件不正确: %#v", events[1])
	}
	if events[2].Volume == nil || events[2].Volume.CurrentMinuteVolume != 75 {
		t.Fatalf("第三个事件不正确: %#v", events[2])
	}
	for _, ev := range events {
		if ev.Symbol != "BTCUSDT" {
			t.Fatalf("路由结果应为订阅的 key: %#v", ev)
		}
	}

	if client.Status() != StatusDisconnected {
		t.Fatalf("正常关闭后状态应为 disconnected, 实际 %s", client.Status())
	}
}

func TestClientDialFailure(t *testing.T) {
	client := NewClient(ClientOptions{BaseURL: "ws://127.0.0.1:1"}, []string{"BTCUSDT"}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.Connect(ctx); err == nil {
		t.Fatal("无法连接时应返回错误")
	}
	if client.Status() != StatusError {
		t.Fatalf("拨号失败后状态应为 error, 实际 %s", client.Status())
	}
	if _, ok := <-client.Events(); ok {
		t.Fatal("拨号失败后事件通道应已关闭")
	}
}

func TestClientNoSymbols(t *testing.T) {
	client := NewClient(ClientOptions{BaseURL: "ws://localhost"}, nil, zerolog.Nop())
	if err := client.Connect(context.Background()); err == nil {
		t.Fatal("空订阅集应返回错误")
	}
}
