package utils

import "testing"

func TestIsEmptyValue(t *testing.T) {
	empty := []interface{}{nil, "", "   ", "\t\n"}
	for _, v := range empty {
		if !IsEmptyValue(v) {
			t.Errorf("%#v should be empty", v)
		}
	}
	populated := []interface{}{0, false, "x", 3.14, []interface{}{}}
	for _, v := range populated {
		if IsEmptyValue(v) {
			t.Errorf("%#v should not be empty", v)
		}
	}
}

func TestIsTruthy(t *testing.T) {
	falsy := []interface{}{nil, false, 0, int64(0), float64(0), ""}
	for _, v := range falsy {
		if IsTruthy(v) {
			t.Errorf("%#v should be falsy", v)
		}
	}
	truthy := []interface{}{true, 1, -1, float64(0.5), "no", map[string]interface{}{}}
	for _, v := range truthy {
		if !IsTruthy(v) {
			t.Errorf("%#v should be truthy", v)
		}
	}
}

func TestNormalizePhoneNumber(t *testing.T) {
	if got := NormalizePhoneNumber("(416) 555-0199", "CA"); got != "+14165550199" {
		t.Errorf("expected E.164 form, got %q", got)
	}
	if got := NormalizePhoneNumber("not a phone", "CA"); got != "not a phone" {
		t.Errorf("unparseable input should pass through, got %q", got)
	}
	if got := NormalizePhoneNumber("   ", "CA"); got != "" {
		t.Errorf("blank input should trim to empty, got %q", got)
	}
}

func TestIsValidEmail(t *testing.T) {
	for _, valid := range []string{"vendor@example.com", "first.last+grc@sub.example.co"} {
		if !IsValidEmail(valid) {
			t.Errorf("%q should be accepted", valid)
		}
	}
	for _, invalid := range []string{"", "vendor", "vendor@", "@example.com", "vendor@example"} {
		if IsValidEmail(invalid) {
			t.Errorf("%q should be rejected", invalid)
		}
	}
}

func TestSafeJSONObject(t *testing.T) {
	if m := SafeJSONObject([]byte(`{"a":1}`)); m["a"] != float64(1) {
		t.Errorf("unexpected decode: %v", m)
	}
	for _, raw := range [][]byte{nil, {}, []byte("null"), []byte("{bad")} {
		if m := SafeJSONObject(raw); m == nil || len(m) != 0 {
			t.Errorf("raw %q should decode to an empty map, got %v", raw, m)
		}
	}
}

func TestSafeJSONStringList(t *testing.T) {
	got := SafeJSONStringList([]byte(`["a", 2, "b", null]`))
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("non-string members should be dropped, got %v", got)
	}
	if got := SafeJSONStringList([]byte("{bad")); len(got) != 0 {
		t.Errorf("malformed payload should decode empty, got %v", got)
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order not preserved: got %v", got)
		}
	}
}
