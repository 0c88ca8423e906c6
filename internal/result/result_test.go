package result

import "testing"

func TestResult(t *testing.T) {
	ok := Success("user registered")
	if !ok.OK || ok.Message != "user registered" {
		t.Fatalf("unexpected result: %+v", ok)
	}
	if ok.String() != "success: user registered" {
		t.Fatalf("unexpected string: %q", ok.String())
	}

	bad := Failure("user was not deleted")
	if bad.OK || bad.Message != "user was not deleted" {
		t.Fatalf("unexpected result: %+v", bad)
	}
	if bad.String() != "failure: user was not deleted" {
		t.Fatalf("unexpected string: %q", bad.String())
	}
}
