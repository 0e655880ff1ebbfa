package validate

import "testing"

func TestCombinedUniquenessCheckerDetectsDuplicate(t *testing.T) {
	c := NewCombinedUniquenessChecker()
	key := CombinedKey([]string{"alice", "alice@example.com"})
	if c.CheckAndInsert(key) {
		t.Fatal("first insert should not be a duplicate")
	}
	if !c.CheckAndInsert(key) {
		t.Fatal("second insert of same key should be a duplicate")
	}
}

func TestCombinedUniquenessCheckerDistinctKeys(t *testing.T) {
	c := NewCombinedUniquenessChecker()
	if c.CheckAndInsert(CombinedKey([]string{"a", "b"})) {
		t.Fatal("unexpected duplicate")
	}
	if c.CheckAndInsert(CombinedKey([]string{"a", "c"})) {
		t.Fatal("unexpected duplicate for distinct combined key")
	}
}
