package strategy

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		in       string
		wantKind Kind
		wantRest string
	}{
		{"icon.png", KindImage, "icon.png"},
		{"icon.JPG", KindImage, "icon.JPG"},
		{"text=Log in", KindText, "Log in"},
		{"css=.btn-primary", KindCSS, ".btn-primary"},
		{"xpath=//button", KindXPath, "//button"},
		{"//button[@id='x']", KindXPath, "//button[@id='x']"},
		{"/html/body", KindXPath, "/html/body"},
		{"(//div)[1]", KindXPath, "(//div)[1]"},
		{"id:login_btn", KindID, "login_btn"},
		{"#login", KindCSS, "#login"},
		{".btn", KindCSS, ".btn"},
		{"div[data-id='x']", KindCSS, "div[data-id='x']"},
		{"input#email", KindCSS, "input#email"},
		{"100,200", KindText, "100,200"},
		{"Submit", KindText, "Submit"},
	}
	for _, c := range cases {
		kind, rest := Classify(c.in)
		if kind != c.wantKind || rest != c.wantRest {
			t.Errorf("Classify(%q) = (%q, %q), want (%q, %q)", c.in, kind, rest, c.wantKind, c.wantRest)
		}
	}
}
