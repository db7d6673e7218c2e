package util

import "testing"

func TestSplitTrimmed(t *testing.T) {
	got := SplitTrimmed(" 100M, 4X100M ,, LOMPAT JAUH ", ",")
	want := []string{"100M", "4X100M", "LOMPAT JAUH"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRequestSignature(t *testing.T) {
	sig := RequestSignature("s3cret", "update", "Daftar", "3", `{"PASUKAN":"A"}`)
	if !VerifyHMAC("s3cret", "update\nDaftar\n3\n{\"PASUKAN\":\"A\"}", sig) {
		t.Fatalf("signature should verify")
	}
	if VerifyHMAC("other", "update\nDaftar\n3\n{\"PASUKAN\":\"A\"}", sig) {
		t.Fatalf("wrong secret should not verify")
	}
	if VerifyHMAC("s3cret", "x", "") {
		t.Fatalf("empty signature should not verify")
	}
}
