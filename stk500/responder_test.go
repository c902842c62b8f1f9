package stk500

import (
	"bytes"
	"context"
	"io"
	"testing"
)

type readWriter struct {
	io.Reader
	io.Writer
}

func TestResponder_ServeOne(t *testing.T) {
	tests := []struct {
		name    string
		seq     byte
		command []byte
		want    []byte
	}{
		{"sign on", 1, []byte{CmdSignOn}, append([]byte{CmdSignOn, StatusCmdOK, 8}, SignOnName...)},
		{"set parameter", 2, []byte{CmdSetParameter, 0x98, 0x01}, []byte{CmdSetParameter, StatusCmdOK}},
		{"read flash", 3, []byte{CmdReadFlashISP, 0x00, 0x02, 0x20}, []byte{CmdReadFlashISP, StatusCmdOK, 0xFF, 0xFF, StatusCmdOK}},
		{"unknown", 4, []byte{0x7F}, []byte{0x7F, StatusCmdUnknown}},
		{"empty", 5, nil, []byte{StatusCmdFailed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			in := bytes.NewReader(AppendFrame(nil, tt.seq, tt.command))
			r := NewResponder(readWriter{in, &out}, nil)
			if err := r.ServeOne(); err != nil {
				t.Fatalf("ServeOne() error = %v", err)
			}
			want := AppendFrame(nil, tt.seq, tt.want)
			if !bytes.Equal(out.Bytes(), want) {
				t.Errorf("response = %x, want %x", out.Bytes(), want)
			}
		})
	}
}

func TestResponder_ChecksumError(t *testing.T) {
	frame := AppendFrame(nil, 9, []byte{CmdSignOn})
	frame[len(frame)-1] ^= 0x01

	var out bytes.Buffer
	r := NewResponder(readWriter{bytes.NewReader(frame), &out}, nil)
	if err := r.ServeOne(); err != nil {
		t.Fatalf("ServeOne() error = %v", err)
	}
	want := AppendFrame(nil, 9, []byte{AnswerCksumError, StatusCksumError})
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("response = %x, want %x", out.Bytes(), want)
	}
}

func TestResponder_ServeUntilEOF(t *testing.T) {
	var wire []byte
	wire = AppendFrame(wire, 1, []byte{CmdSignOn})
	wire = AppendFrame(wire, 2, []byte{CmdLeaveProgmodeISP})

	var out bytes.Buffer
	r := NewResponder(readWriter{bytes.NewReader(wire), &out}, func(body []byte) []byte {
		return []byte{body[0], StatusCmdOK}
	})
	if err := r.Serve(context.Background()); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	var want []byte
	want = AppendFrame(want, 1, []byte{CmdSignOn, StatusCmdOK})
	want = AppendFrame(want, 2, []byte{CmdLeaveProgmodeISP, StatusCmdOK})
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("responses = %x, want %x", out.Bytes(), want)
	}
}
