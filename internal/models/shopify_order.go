package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ShopifyOrder represents the orders/paid webhook payload.
// Only the fields used for rank provisioning are decoded.
type ShopifyOrder struct {
	ID        OrderID         `json:"id"`
	Name      string          `json:"name,omitempty"` // e.g. "#1001"
	LineItems []OrderLineItem `json:"line_items"`
}

// OrderLineItem is a single purchased product in an order
type OrderLineItem struct {
	ID         OrderID        `json:"id"`
	ProductID  OrderID        `json:"product_id,omitempty"`
	Title      string         `json:"title,omitempty"`
	Properties []LineProperty `json:"properties"`
	Product    *OrderProduct  `json:"product,omitempty"`
}

// LineProperty is a custom cart attribute, e.g. {"name": "Nick Minecraft", "value": "Alex99"}
type LineProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type OrderProduct struct {
	ID         OrderID           `json:"id"`
	Metafields ProductMetafields `json:"metafields"`
}

type ProductMetafields struct {
	Rank *RankMetafield `json:"rank,omitempty"`
}

// RankMetafield holds the LuckPerms group granted by the product
type RankMetafield struct {
	LuckPermsGroup string `json:"luckperms_group"`
}

// Property returns the trimmed value of the named property, or "" when absent.
func (li OrderLineItem) Property(name string) string {
	for _, p := range li.Properties {
		if p.Name == name {
			return strings.TrimSpace(p.Value)
		}
	}
	return ""
}

// RankGroup returns the entitlement token from the product metadata, or "" when absent.
func (li OrderLineItem) RankGroup() string {
	if li.Product == nil || li.Product.Metafields.Rank == nil {
		return ""
	}
	return strings.TrimSpace(li.Product.Metafields.Rank.LuckPermsGroup)
}

// OrderID accepts both JSON numbers and strings. Shopify ids exceed float64
// precision so numbers are kept as their literal text.
type OrderID string

func (id *OrderID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = OrderID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = OrderID(n.String())
	return nil
}

func (id OrderID) String() string {
	return string(id)
}
