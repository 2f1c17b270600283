package domain

import "testing"

func TestDeriveIPName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"model suffix", "パチスロ北斗の拳6号機", "パチスロ北斗の拳"},
		{"letter prefix", "SPエヴァンゲリオン", "エヴァンゲリオン"},
		{"CR prefix and digits", "CR花の慶次 2", "花の慶次"},
		{"lowercase survives", "Re:ゼロ season2", "e:ゼロ season"},
		{"plain", "ジャグラー", "ジャグラー"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveIPName(tt.in); got != tt.want {
				t.Errorf("DeriveIPName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTierBand(t *testing.T) {
	if TierHigh5.Band() != BandHigh {
		t.Errorf("expected high band for %s", TierHigh5)
	}
	if TierMedium.Band() != BandMedium {
		t.Errorf("expected medium band for %s", TierMedium)
	}
	if TierLow1.Band() != BandLow {
		t.Errorf("expected low band for %s", TierLow1)
	}
	if Tier("BOGUS").Valid() {
		t.Error("expected unknown tier to be invalid")
	}
}

func TestFactorBreakdownSum(t *testing.T) {
	f := FactorBreakdown{Base: 0.5, IP: 0.1, Spec: -0.2, Release: 0.3, Adjustment: -0.1}
	if got := f.Sum(); got < 0.599 || got > 0.601 {
		t.Errorf("expected sum 0.6, got %f", got)
	}
}
