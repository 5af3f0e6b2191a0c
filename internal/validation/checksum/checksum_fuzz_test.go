package checksum

import "testing"

// FuzzVerify checks that verification never panics and only accepts input
// that normalizes to 11 digits.
func FuzzVerify(f *testing.F) {
	f.Add("")
	f.Add("529.982.247-25")
	f.Add("00000000000")
	f.Add("5299822472５")
	f.Add(string([]byte{0xff, 0xfe}))

	f.Fuzz(func(t *testing.T, input string) {
		if Verify(input) && len(Normalize(input)) != Length {
			t.Fatalf("accepted %q with %d digits", input, len(Normalize(input)))
		}
	})
}
