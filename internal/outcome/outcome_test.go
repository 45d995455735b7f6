package outcome

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Outcome
		wantErr bool
	}{
		{"Альфа", Alpha, false},
		{"альфа", Alpha, false},
		{"alpha", Alpha, false},
		{"ALPHA", Alpha, false},
		{"a", Alpha, false},
		{"A", Alpha, false},
		{"а", Alpha, false}, // cyrillic
		{"Омега", Omega, false},
		{"omega", Omega, false},
		{"o", Omega, false},
		{"O", Omega, false},
		{"о", Omega, false}, // cyrillic
		{"  alpha  ", Alpha, false},
		{"", Alpha, true},
		{"beta", Alpha, true},
		{"alphaomega", Alpha, true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  Outcome
		found bool
	}{
		{"russian alpha", "результат: Альфа", Alpha, true},
		{"russian omega", "на экране ОМЕГА", Omega, true},
		{"latin alpha", "round result ALPHA wins", Alpha, true},
		{"latin omega", "omega", Omega, true},
		{"scattered alpha", "а л ь ф а", Alpha, true},
		{"scattered omega", "о-м-е-г-а", Omega, true},
		{"alpha precedence when both present", "омега альфа", Alpha, true},
		{"empty", "", Alpha, false},
		{"unrelated", "loading...", Alpha, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Detect(tt.text)
			if found != tt.found {
				t.Fatalf("Detect(%q) found = %v, want %v", tt.text, found, tt.found)
			}
			if found && got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Omega)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"Омега"` {
		t.Errorf("Marshal(Omega) = %s, want %q", data, LabelOmega)
	}

	var o Outcome
	if err := json.Unmarshal([]byte(`"alpha"`), &o); err != nil {
		t.Fatal(err)
	}
	if o != Alpha {
		t.Errorf("Unmarshal alias = %v, want Alpha", o)
	}

	if err := json.Unmarshal([]byte(`"gamma"`), &o); err == nil {
		t.Error("Unmarshal of unknown value should fail")
	}
}
