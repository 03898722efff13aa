package app

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"sermonizer/pkg/history"
)

func runReader(t *testing.T, tr *fakeTransport, cfg ReaderConfig) ([]string, error) {
	t.Helper()
	running := new(atomic.Bool)
	running.Store(true)
	inbox := NewInbox()

	cfg.Logger = testLogger()
	r := NewReader(tr, running, inbox, cfg)

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	select {
	case err := <-done:
		return inbox.Drain(nil), err
	case <-time.After(3 * time.Second):
		running.Store(false)
		t.Fatal("reader did not stop")
		return nil, nil
	}
}

func TestReader_Formats(t *testing.T) {
	tests := []struct {
		name        string
		hex         bool
		timestamps  bool
		reads       [][]byte
		wantDisplay []string
		wantLog     string
	}{
		{
			name:        "text",
			reads:       [][]byte{[]byte("hel"), []byte("lo\n")},
			wantDisplay: []string{"hel", "lo\n"},
			wantLog:     "hello\n",
		},
		{
			name:        "text with timestamps",
			timestamps:  true,
			reads:       [][]byte{[]byte("hi\n")},
			wantDisplay: []string{"[" + fixedStamp + "] hi\n"},
			wantLog:     "[" + fixedStamp + "] hi\n",
		},
		{
			name:        "hex",
			hex:         true,
			reads:       [][]byte{{0x41, 0x0a}, {0xff}},
			wantDisplay: []string{"41 0A\n", "FF\n"},
			wantLog:     "41 0A\nFF\n",
		},
		{
			name:        "hex with timestamps",
			hex:         true,
			timestamps:  true,
			reads:       [][]byte{{0x00, 0x7f}},
			wantDisplay: []string{"[" + fixedStamp + "] 00 7F\n"},
			wantLog:     "[" + fixedStamp + "] 00 7F\n",
		},
		{
			name:        "text log keeps raw bytes",
			reads:       [][]byte{{'a', 0xff, '\n'}},
			wantDisplay: []string{"a�\n"},
			wantLog:     "a\xff\n",
		},
		{
			name:        "rune split across reads",
			reads:       [][]byte{{0xe2, 0x82}, {0xac, '\n'}},
			wantDisplay: []string{"€\n"},
			wantLog:     "\xe2\x82\xac\n",
		},
		{
			name:        "split rune is stamped once",
			timestamps:  true,
			reads:       [][]byte{{0xe2, 0x82}, {0xac, '\n'}},
			wantDisplay: []string{"[" + fixedStamp + "] €\n"},
			wantLog:     "[" + fixedStamp + "] \xe2\x82[" + fixedStamp + "] \xac\n",
		},
		{
			name:        "unfinished rune flushed on exit",
			reads:       [][]byte{{'a', 0xe2, 0x82}},
			wantDisplay: []string{"a", "\ufffd\ufffd"},
			wantLog:     "a\xe2\x82",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf syncBuffer
			session := NewSession(validSerialConfig())
			tr := &fakeTransport{reads: tt.reads, readErr: errDevice}

			display, err := runReader(t, tr, ReaderConfig{
				Hex:        tt.hex,
				Timestamps: tt.timestamps,
				RxLog:      history.NewSink(&logBuf),
				Session:    session,
				Clock:      fixedClock,
			})

			if !errors.Is(err, errDevice) {
				t.Errorf("Run() error = %v, want %v", err, errDevice)
			}
			if !reflect.DeepEqual(display, tt.wantDisplay) {
				t.Errorf("display = %q, want %q", display, tt.wantDisplay)
			}
			if got := logBuf.String(); got != tt.wantLog {
				t.Errorf("rx log = %q, want %q", got, tt.wantLog)
			}

			var total int64
			for _, r := range tt.reads {
				total += int64(len(r))
			}
			if _, recv := session.GetStats(); recv != total {
				t.Errorf("received = %d, want %d", recv, total)
			}
		})
	}
}

func TestReader_StopsWhenFlagCleared(t *testing.T) {
	running := new(atomic.Bool)
	running.Store(true)
	tr := &fakeTransport{}
	r := NewReader(tr, running, NewInbox(), ReaderConfig{Logger: testLogger()})

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	time.Sleep(20 * time.Millisecond)
	running.Store(false)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reader ignored cleared run flag")
	}
}

func TestReader_FailureIsNotRetried(t *testing.T) {
	tr := &fakeTransport{readErr: errDevice}
	display, err := runReader(t, tr, ReaderConfig{})

	if !errors.Is(err, errDevice) {
		t.Fatalf("Run() error = %v, want %v", err, errDevice)
	}
	if len(display) != 0 {
		t.Errorf("display = %q, want nothing", display)
	}
}

func TestReader_NoRxLog(t *testing.T) {
	tr := &fakeTransport{reads: [][]byte{[]byte("x\n")}, readErr: errDevice}
	display, _ := runReader(t, tr, ReaderConfig{})
	if !reflect.DeepEqual(display, []string{"x\n"}) {
		t.Errorf("display = %q", display)
	}
}
