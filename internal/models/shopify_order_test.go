package models

import (
	"encoding/json"
	"testing"
)

func TestShopifyOrderDecode(t *testing.T) {
	body := `{
		"id": 820982911946154508,
		"name": "#1001",
		"line_items": [
			{
				"id": 466157049,
				"product_id": 632910392,
				"properties": [{"name": "Gift", "value": "no"}, {"name": "Nick Minecraft", "value": "  Alex99 "}],
				"product": {"id": 632910392, "metafields": {"rank": {"luckperms_group": "vip"}}}
			},
			{
				"id": "518995019",
				"properties": [],
				"product": {"id": 1, "metafields": {}}
			}
		]
	}`

	var order ShopifyOrder
	if err := json.Unmarshal([]byte(body), &order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != "820982911946154508" {
		t.Errorf("ID = %q, want exact integer text", order.ID)
	}
	if len(order.LineItems) != 2 {
		t.Fatalf("line items = %d, want 2", len(order.LineItems))
	}

	first := order.LineItems[0]
	if got := first.Property("Nick Minecraft"); got != "Alex99" {
		t.Errorf("Property = %q, want Alex99", got)
	}
	if got := first.RankGroup(); got != "vip" {
		t.Errorf("RankGroup = %q, want vip", got)
	}

	second := order.LineItems[1]
	if second.ID != "518995019" {
		t.Errorf("second ID = %q", second.ID)
	}
	if got := second.Property("Nick Minecraft"); got != "" {
		t.Errorf("Property = %q, want empty", got)
	}
	if got := second.RankGroup(); got != "" {
		t.Errorf("RankGroup = %q, want empty", got)
	}
}

func TestOrderIDRejectsInvalid(t *testing.T) {
	var id OrderID
	if err := json.Unmarshal([]byte(`true`), &id); err == nil {
		t.Fatal("expected error for boolean id")
	}
	if err := json.Unmarshal([]byte(`null`), &id); err != nil || id != "" {
		t.Fatalf("null id = %q, %v", id, err)
	}
}

func TestPurchaseStatusIsTerminal(t *testing.T) {
	if StatusPending.IsTerminal() {
		t.Error("pending must not be terminal")
	}
	if !StatusCompleted.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Error("completed and failed must be terminal")
	}
}
