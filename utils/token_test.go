package utils

import "testing"

func TestJwtRoundTrip(t *testing.T) {
	token, err := JwtGenerate(42, "org-1", "service", "grc-abc123")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	parsed, err := JwtValidate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("token should be valid")
	}

	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok {
		t.Fatal("claims should be JwtCustomClaim")
	}
	if claims.ID != 42 || claims.OrgId != "org-1" || claims.Role != "service" || claims.ClientId != "grc-abc123" {
		t.Fatalf("claims round trip failed: %+v", claims)
	}
}

func TestJwtValidate_RejectsGarbage(t *testing.T) {
	if _, err := JwtValidate("not.a.token"); err == nil {
		t.Fatal("garbage token should fail validation")
	}
}

func TestHashAndCompareSecret(t *testing.T) {
	hash, err := HashSecret("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := CompareSecret(string(hash), "s3cret"); err != nil {
		t.Fatalf("matching secret should compare clean: %v", err)
	}
	if err := CompareSecret(string(hash), "wrong"); err == nil {
		t.Fatal("wrong secret should not compare")
	}
}
