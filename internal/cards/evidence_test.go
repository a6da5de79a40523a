package cards

import (
	"testing"

	"github.com/plotforge/plotforge/internal/evidence"
)

func TestEvidenceItemsCharacterCard(t *testing.T) {
	card := &Card{
		ProjectID: "p1",
		Kind:      KindCharacter,
		Name:      "张三",
		Fields: []Field{
			{Key: "动机", Value: "寻找失踪的妹妹", Stars: 3},
			{Key: "状态", Value: "  ", Stars: 5},
		},
	}

	items := EvidenceItems(card)
	if len(items) != 1 {
		t.Fatalf("blank fields must be skipped, got %d items", len(items))
	}
	item := items[0]
	if item.Kind != evidence.KindCharacter {
		t.Errorf("character field kind = %s", item.Kind)
	}
	if item.ProjectID != "p1" {
		t.Errorf("project = %q", item.ProjectID)
	}
	if item.Text != "张三 动机: 寻找失踪的妹妹" {
		t.Errorf("text = %q", item.Text)
	}
	if item.Weight != 2.5 {
		t.Errorf("3 stars weigh 1.0+3*0.5, got %f", item.Weight)
	}
	if item.Source["origin"] != "card" || item.Source["card"] != "张三" || item.Source["field"] != "动机" {
		t.Errorf("source = %+v", item.Source)
	}
	if item.Meta["stars"] != "3" {
		t.Errorf("meta = %+v", item.Meta)
	}
}

func TestEvidenceItemsWorldCardStarSplit(t *testing.T) {
	card := &Card{
		ProjectID: "p1",
		Kind:      KindWorld,
		Name:      "旧宅",
		Fields: []Field{
			{Key: "规则", Value: "夜间大门自动落锁", Stars: 3},
			{Key: "外观", Value: "爬满藤蔓", Stars: 1},
		},
	}

	items := EvidenceItems(card)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Kind != evidence.KindWorldRule {
		t.Errorf("starred world field becomes a rule, got %s", items[0].Kind)
	}
	if items[1].Kind != evidence.KindWorldEntity {
		t.Errorf("lightly starred world field stays an entity, got %s", items[1].Kind)
	}
	if items[1].Weight != 1.5 {
		t.Errorf("1 star weighs 1.5, got %f", items[1].Weight)
	}
}
