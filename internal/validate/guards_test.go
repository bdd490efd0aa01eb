package validate

import "testing"

func TestAudioContentType(t *testing.T) {
	cases := map[string]bool{
		"audio/wav":            true,
		"audio/wav; codec=pcm": true,
		"AUDIO/WAV":            true,
		"  audio/ogg  ":        true,
		"audio/ogg":            true,
		"video/mp4":            false,
		"":                     false,
	}
	for ct, want := range cases {
		if got := AudioContentType(ct); got != want {
			t.Errorf("AudioContentType(%q) = %v, want %v", ct, got, want)
		}
	}
}

func TestAudioSize(t *testing.T) {
	if AudioSize(0, 100) {
		t.Error("zero-length audio must be rejected")
	}
	if !AudioSize(100, 100) {
		t.Error("exactly-at-limit audio must be accepted")
	}
	if AudioSize(101, 100) {
		t.Error("over-limit audio must be rejected")
	}
	if AudioSize(-1, 100) {
		t.Error("negative size must be rejected")
	}
}

func TestURLSyntax(t *testing.T) {
	if !URLSyntax("ws://localhost:3000", "ws", "wss") {
		t.Error("ws scheme should be accepted when allowed")
	}
	if URLSyntax("http://localhost:3000", "ws", "wss") {
		t.Error("http scheme should be rejected when only ws/wss are allowed")
	}
	if URLSyntax("not-a-url", "ws") {
		t.Error("a schemeless string should never pass")
	}
	if URLSyntax("ws://", "ws") {
		t.Error("a URL with no host should be rejected")
	}
}

func TestProviderId(t *testing.T) {
	if _, err := ProviderId("whisperx"); err != nil {
		t.Errorf("ProviderId(whisperx) error = %v, want nil", err)
	}
	if _, err := ProviderId(" OpenAI "); err != nil {
		t.Errorf("ProviderId should normalize case/whitespace, got error %v", err)
	}
	if _, err := ProviderId("bogus"); err == nil {
		t.Error("ProviderId(bogus) should return an error")
	}
}

func TestConfidence(t *testing.T) {
	if !Confidence(0) || !Confidence(1) || !Confidence(0.5) {
		t.Error("0, 1, and 0.5 must all be valid confidence values")
	}
	if Confidence(-0.01) || Confidence(1.01) {
		t.Error("values outside [0,1] must be rejected")
	}
}
