package archetype

import (
	"reflect"
	"testing"
)

func TestDeck_CardNames(t *testing.T) {
	deck := &Deck{
		Mainboard: CardMultiset{"Lightning Bolt": 4, "Mountain": 18, "Ghost": 0},
		Sideboard: CardMultiset{"Lightning Bolt": 0, "Path to Exile": 2},
	}

	want := []string{"Lightning Bolt", "Mountain", "Path to Exile"}
	if got := deck.CardNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("CardNames() = %v, want %v", got, want)
	}
	if got := deck.Mainboard.Total(); got != 22 {
		t.Errorf("Mainboard.Total() = %d, want 22", got)
	}
	if deck.InSide("Lightning Bolt") {
		t.Error("zero sideboard count should not count as present")
	}
}

func TestDeck_IsEmpty(t *testing.T) {
	if !NewDeck().IsEmpty() {
		t.Error("new deck should be empty")
	}
	if (&Deck{Sideboard: CardMultiset{"Island": 1}}).IsEmpty() {
		t.Error("deck with a sideboard card is not empty")
	}
}
