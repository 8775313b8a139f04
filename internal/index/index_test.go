package index

import "testing"

func TestTopicIndexAddRemove(t *testing.T) {
	ti := NewTopicIndex()
	ti.Add("proj/a", "1")
	ti.Add("proj/b", "2")
	ti.Add("other", "3")

	got := ti.IDs("proj/a")
	if len(got) != 1 || got[0] != "1" {
		t.Fatalf("IDs(proj/a) = %v, want [1]", got)
	}

	topics := map[string]bool{}
	for _, tp := range ti.Topics() {
		topics[tp] = true
	}
	if !topics["proj/a"] || !topics["proj/b"] || !topics["other"] || !topics["proj"] {
		t.Fatalf("expected proj/a, proj/b, other, and ancestor proj, got %v", topics)
	}

	ti.Remove("proj/a", "1")
	topics = map[string]bool{}
	for _, tp := range ti.Topics() {
		topics[tp] = true
	}
	if topics["proj/a"] {
		t.Error("proj/a should be pruned after its only member is removed")
	}
	if !topics["proj"] {
		t.Error("ancestor proj should remain since proj/b still contributes a live descendant")
	}

	ti.Remove("proj/b", "2")
	topics = map[string]bool{}
	for _, tp := range ti.Topics() {
		topics[tp] = true
	}
	if topics["proj"] {
		t.Error("ancestor proj should be pruned once both proj/a and proj/b are empty")
	}
}

func TestMetadataIndexEquals(t *testing.T) {
	mi := NewMetadataIndex()
	mi.Add("1", map[string]string{"topic": "work", "pri": "high"})
	mi.Add("2", map[string]string{"topic": "home"})

	got := mi.Equals("topic", "work")
	if len(got) != 1 || got[0] != "1" {
		t.Fatalf("Equals(topic, work) = %v, want [1]", got)
	}

	mi.Remove("1", map[string]string{"topic": "work", "pri": "high"})
	if len(mi.Equals("topic", "work")) != 0 {
		t.Error("expected no matches after removal")
	}
}

func TestInvertedIndexCandidatesAndBM25Stats(t *testing.T) {
	ii := NewInvertedIndex()
	ii.Add("1", "the quick brown fox")
	ii.Add("2", "the lazy dog")

	got := ii.Candidates([]string{"fox"})
	if len(got) != 1 || got[0] != "1" {
		t.Fatalf("Candidates(fox) = %v, want [1]", got)
	}

	corpus := ii.Corpus()
	if corpus.NumDocs != 2 {
		t.Errorf("NumDocs = %d, want 2", corpus.NumDocs)
	}
	if corpus.DocFreq["the"] != 2 {
		t.Errorf("DocFreq[the] = %d, want 2", corpus.DocFreq["the"])
	}
}

func TestEvaluateAdvancedPredicates(t *testing.T) {
	md := map[string]string{"topic": "work", "priority": "5"}

	if !Evaluate(Eq("topic", "work"), md) {
		t.Error("eq should match")
	}
	if Evaluate(Eq("topic", "home"), md) {
		t.Error("eq should not match")
	}

	gt := &Expr{Op: OpGt, Field: "priority", Value: "3"}
	if !Evaluate(gt, md) {
		t.Error("priority 5 > 3 should match")
	}

	combo := And(Eq("topic", "work"), gt)
	if !Evaluate(combo, md) {
		t.Error("AND(eq, gt) should match")
	}

	notExpr := &Expr{Op: OpNot, Children: []*Expr{Eq("topic", "home")}}
	if !Evaluate(notExpr, md) {
		t.Error("NOT(eq topic home) should match since topic is work")
	}
}
