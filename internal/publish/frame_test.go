package publish

import (
	"errors"
	"reflect"
	"testing"
)

func TestFrame_Encode(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{
			name:  "bare payload",
			frame: Frame{Subject: "hand.jointData", Payload: []byte("hi")},
			want:  "PUB hand.jointData 2\r\nhi\r\n",
		},
		{
			name:  "quoted string payload counts the quotes",
			frame: Frame{Subject: "hand.jointData", Payload: []byte(`"hi"`)},
			want:  "PUB hand.jointData 4\r\n\"hi\"\r\n",
		},
		{
			name:  "utf-8 payload counts bytes not runes",
			frame: Frame{Subject: "hand.prediction", Payload: []byte(`"gauche→"`)},
			want:  "PUB hand.prediction 11\r\n\"gauche→\"\r\n",
		},
		{
			name:  "empty payload",
			frame: Frame{Subject: "test.subject", Payload: nil},
			want:  "PUB test.subject 0\r\n\r\n",
		},
		{
			name:  "reference hello",
			frame: Frame{Subject: "test.subject", Payload: []byte("Hello")},
			want:  "PUB test.subject 5\r\nHello\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(tt.frame.Encode()); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFrame_Validate(t *testing.T) {
	for _, subject := range []string{"", "hand data", "hand\r\n"} {
		err := Frame{Subject: subject}.Validate()
		if !errors.Is(err, ErrBadFrame) {
			t.Errorf("Validate(%q) = %v, want ErrBadFrame", subject, err)
		}
	}
	if err := (Frame{Subject: "hand.jointData"}).Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestParseFrames(t *testing.T) {
	a := Frame{Subject: "hand.jointData", Payload: []byte("{\r\n  \"x\": 1\r\n}")}
	b := Frame{Subject: "hand.prediction", Payload: []byte(`"left"`)}

	stream := append(a.Encode(), b.Encode()...)
	frames, err := ParseFrames(stream)
	if err != nil {
		t.Fatalf("ParseFrames: %v", err)
	}
	if !reflect.DeepEqual(frames, []Frame{a, b}) {
		t.Errorf("frames = %+v", frames)
	}
}

func TestParseFrames_Errors(t *testing.T) {
	bad := []string{
		"PUB hand.jointData 2",
		"SUB hand.jointData 1\r\n",
		"PUB hand.jointData x\r\nhi\r\n",
		"PUB hand.jointData 5\r\nhi\r\n",
		"PUB hand.jointData 1\r\nhi\r\n",
	}
	for _, in := range bad {
		if _, err := ParseFrames([]byte(in)); !errors.Is(err, ErrBadFrame) {
			t.Errorf("ParseFrames(%q) err = %v, want ErrBadFrame", in, err)
		}
	}
}
