package scalar

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestClassify(t *testing.T) {
	cases := []struct {
		gains, losses string
		want          Case
		delta         string
	}{
		{"5", "4", Case1, "1"},
		{"4", "4.5", Case2, "0.5"},
		{"4", "5", Case3, "1"},
		{"4", "6", Case4, "2"},
		{"1.5", "1.5", Case1, "0"},
		{"0", "0", Case1, "0"},
	}
	for _, tc := range cases {
		c, delta := Classify(d(tc.gains), d(tc.losses))
		if c != tc.want {
			t.Fatalf("Classify(%s,%s) case = %v, want %v", tc.gains, tc.losses, c, tc.want)
		}
		if !delta.Equal(d(tc.delta)) {
			t.Fatalf("Classify(%s,%s) delta = %s, want %s", tc.gains, tc.losses, delta, tc.delta)
		}
	}
}

// One fixture per before/after case pair. Values verified by hand against the
// closed-form multipliers.
func TestComputeScalar(t *testing.T) {
	cases := []struct {
		name           string
		gains, losses  string
		realized       string
		realizedIsGain bool
		roundUp        bool
		want           string
	}{
		{"gain to gain", "1.5", "0", "0.9", true, true, "1.5625"},
		{"gain to small loss", "0.5", "0.3", "0.5", true, true, "1.578947368421052632"},
		{"gain to pinned loss", "2", "1", "2", true, true, "10"},
		{"gain to deep loss", "1.3", "1.2", "1.3", true, true, "6.6"},
		{"small loss to gain", "0.5", "0.7", "0.7", false, false, "0.56"},
		{"small loss to smaller loss", "0", "0.6", "0.3", false, false, "0.684210526315789473"},
		{"small loss to pinned loss", "0.4", "1", "0.4", true, true, "2.6"},
		{"small loss to deep loss", "0.6", "1.2", "0.6", true, true, "3.12"},
		{"pinned loss to gain", "0.5", "1.5", "1.5", false, false, "0.133333333333333333"},
		{"pinned loss to smaller loss", "0", "1", "0.8", false, false, "0.238095238095238095"},
		{"pinned loss unchanged", "0", "1", "0", true, true, "1"},
		{"pinned loss to deep loss", "0.2", "1.2", "0.2", true, true, "1.2"},
		{"deep loss to gain", "0.1", "1.2", "1.2", false, false, "0.165289256198347107"},
		{"deep loss to smaller loss", "0", "1.1", "0.6", false, false, "0.30303030303030303"},
		{"deep loss to pinned loss", "0", "1.1", "0.1", false, false, "0.90909090909090909"},
		{"deep loss to deep loss", "0.1", "1.2", "0.1", true, true, "1.09090909090909091"},
	}
	for _, tc := range cases {
		got, err := ComputeScalar(d(tc.gains), d(tc.losses), d(tc.realized), tc.realizedIsGain, tc.roundUp)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !got.Equal(d(tc.want)) {
			t.Fatalf("%s: scalar = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestComputeScalarDeterministic(t *testing.T) {
	first, err := ComputeScalar(d("1.5"), d("0"), d("0.9"), true, true)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	for i := 0; i < 100; i++ {
		got, err := ComputeScalar(d("1.5"), d("0"), d("0.9"), true, true)
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if !got.Equal(first) {
			t.Fatalf("run %d: scalar = %s, want %s", i, got, first)
		}
	}
}

func TestComputeScalarRoundingOnlyAffectsLastDigit(t *testing.T) {
	up, err := ComputeScalar(d("0"), d("0.6"), d("0.3"), false, true)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	down, err := ComputeScalar(d("0"), d("0.6"), d("0.3"), false, false)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	diff := up.Sub(down)
	if diff.Cmp(decimal.New(1, -18)) > 0 || diff.IsNegative() {
		t.Fatalf("rounding moved result by %s, want at most 1e-18", diff)
	}
}

func TestComputeScalarExactQuotientIgnoresRoundUp(t *testing.T) {
	up, _ := ComputeScalar(d("1.5"), d("0"), d("0.9"), true, true)
	down, _ := ComputeScalar(d("1.5"), d("0"), d("0.9"), true, false)
	if !up.Equal(down) {
		t.Fatalf("exact quotient changed under roundUp: %s vs %s", up, down)
	}
}

func TestComputeScalarInvalidInput(t *testing.T) {
	if _, err := ComputeScalar(d("0.5"), d("0"), d("0.9"), true, true); !errors.Is(err, ErrInvalidScalarInput) {
		t.Fatalf("expected ErrInvalidScalarInput, got %v", err)
	}
	if _, err := ComputeScalar(d("-1"), d("0"), d("0"), true, true); !errors.Is(err, ErrInvalidScalarInput) {
		t.Fatalf("expected ErrInvalidScalarInput for negative gains, got %v", err)
	}
	if _, err := ComputeScalar(d("0"), d("0.5"), d("0.6"), false, false); !errors.Is(err, ErrInvalidScalarInput) {
		t.Fatalf("expected ErrInvalidScalarInput for oversubtracted losses, got %v", err)
	}
}

func TestTokenPriceMultiplier(t *testing.T) {
	cases := []struct {
		gains, losses, want string
	}{
		{"1", "0.5", "1.5"},
		{"0.5", "1", "0.6"},
		{"0.5", "1.5", "0.2"},
		{"0.5", "1.75", "0.16"},
		{"0", "0", "1"},
	}
	for _, tc := range cases {
		got, err := TokenPriceMultiplier(d(tc.gains), d(tc.losses))
		if err != nil {
			t.Fatalf("TokenPriceMultiplier(%s,%s): %v", tc.gains, tc.losses, err)
		}
		if !got.Equal(d(tc.want)) {
			t.Fatalf("TokenPriceMultiplier(%s,%s) = %s, want %s", tc.gains, tc.losses, got, tc.want)
		}
	}
}
