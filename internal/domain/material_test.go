package domain

import "testing"

func TestGetMaterial(t *testing.T) {
	m, ok := GetMaterial("plastic_white")
	if !ok {
		t.Fatal("plastic_white missing from catalog")
	}
	if m.BasePriceCents != 2900 {
		t.Fatalf("plastic_white base = %d, want 2900", m.BasePriceCents)
	}
	if m.SupportsFullColor {
		t.Fatal("plastic_white reports full color support")
	}
	if _, ok := GetMaterial("vibranium"); ok {
		t.Fatal("unknown material found")
	}
}

func TestOnlyFullColorMaterialSupportsColor(t *testing.T) {
	for _, m := range AllMaterials() {
		want := m.Key == "full_color"
		if m.SupportsFullColor != want {
			t.Fatalf("material %s SupportsFullColor = %v", m.Key, m.SupportsFullColor)
		}
	}
}

func TestAllMaterialsSortedByPrice(t *testing.T) {
	all := AllMaterials()
	if len(all) != 5 {
		t.Fatalf("materials = %d, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].BasePriceCents < all[i-1].BasePriceCents {
			t.Fatalf("catalog not price-ordered: %s before %s", all[i-1].Key, all[i].Key)
		}
	}
	if all[0].Key != "plastic_white" || all[len(all)-1].Key != "metal_steel" {
		t.Fatalf("catalog bounds = %s..%s", all[0].Key, all[len(all)-1].Key)
	}
}
