package command

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		text        string
		wantKind    Kind
		wantPayload string
	}{
		{"/bild a red apple", ImageGenerate, "a red apple"},
		{"/generate a red apple", ImageGenerate, "a red apple"},
		{"/BILD Ein Apfel", ImageGenerate, "Ein Apfel"},
		{"/bild", ImageGenerate, ""},
		{"/bearbeite mach es blau", ImageEdit, "mach es blau"},
		{"/edit make it blue", ImageEdit, "make it blue"},
		{"/variation", ImageVariation, ""},
		{"/variante bitte", ImageVariation, ""},
		{"/help", Help, ""},
		{"/hilfe", Help, ""},
		{"/start", Help, ""},
		{"/help me please", Help, ""},
		{"hello", Chat, "hello"},
		{"  hello there  ", Chat, "hello there"},
		{"/unknowncmd foo", Chat, "/unknowncmd foo"},
		{"", Chat, ""},
		{"/bild@mybot a cat", ImageGenerate, "a cat"},
	}
	for _, tc := range cases {
		got := Classify(tc.text)
		if got.Kind != tc.wantKind {
			t.Fatalf("Classify(%q).Kind = %v, want %v", tc.text, got.Kind, tc.wantKind)
		}
		if got.Payload != tc.wantPayload {
			t.Fatalf("Classify(%q).Payload = %q, want %q", tc.text, got.Payload, tc.wantPayload)
		}
	}
}

func TestClassify_PayloadKeepsInnerWhitespace(t *testing.T) {
	got := Classify("/bild ein  roter   Apfel")
	if got.Payload != "ein  roter   Apfel" {
		t.Fatalf("payload = %q, inner whitespace must be preserved", got.Payload)
	}
}

func TestKindString(t *testing.T) {
	if ImageGenerate.String() != "image_generate" || Chat.String() != "chat" {
		t.Fatalf("unexpected Kind string values")
	}
}
