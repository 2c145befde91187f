package listing_test

import (
	"encoding/json"
	"testing"

	"relic/internal/listing"
)

func TestGeneratedContentPricePrecedence(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want float64
	}{
		{"bare recommended key", `{"description":"x","recommended":180}`, 180},
		{"recommended_price key", `{"description":"x","recommended_price":90}`, 90},
		{"recommended wins over recommended_price", `{"description":"x","recommended":180,"recommended_price":90}`, 180},
		{"no recommendation", `{"description":"x"}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var generated listing.GeneratedContent
			if err := json.Unmarshal([]byte(tc.raw), &generated); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := generated.Price(); got != tc.want {
				t.Fatalf("Price() = %v, want %v", got, tc.want)
			}
		})
	}
}
