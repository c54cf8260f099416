package routing

import "testing"

func TestDeriveKitchenOnly(t *testing.T) {
	plan := Derive([]Item{ItemFor("cakes", nil, nil), ItemFor("cakes", nil, nil)})
	if len(plan.Flow) != 4 {
		t.Fatalf("expected 4 stages, got %d", len(plan.Flow))
	}
	if plan.InitialQueue != StageKitchenQueue {
		t.Fatalf("expected kitchen queue first, got %s", plan.InitialQueue)
	}
	if plan.Sequential {
		t.Fatal("single team must not be sequential")
	}
	if plan.CanReturnToDesign {
		t.Fatal("no design team, no design returns")
	}
	if !plan.CanReturnToKitchen {
		t.Fatal("kitchen team must allow kitchen returns")
	}
}

func TestDeriveDesignOnly(t *testing.T) {
	plan := Derive([]Item{ItemFor("flowers", nil, nil)})
	want := []Stage{StageDesignQueue, StageDesignProcessing, StageDesignReady, StageFinalCheckQueue}
	if len(plan.Flow) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(plan.Flow))
	}
	for i, st := range want {
		if plan.Flow[i] != st {
			t.Fatalf("stage %d: expected %s, got %s", i, st, plan.Flow[i])
		}
	}
}

func TestDeriveBothTeamsDesignFirst(t *testing.T) {
	plan := Derive([]Item{ItemFor("cakes", nil, nil), ItemFor("flowers", nil, nil)})
	if len(plan.Flow) != 7 {
		t.Fatalf("expected 7 stages, got %d", len(plan.Flow))
	}
	if !plan.Sequential {
		t.Fatal("two teams must run sequentially")
	}
	if plan.InitialQueue != StageDesignQueue {
		t.Fatalf("design must precede kitchen, got %s", plan.InitialQueue)
	}
	if plan.Flow[3] != StageKitchenQueue {
		t.Fatalf("kitchen must follow design ready, got %s", plan.Flow[3])
	}
	if plan.Flow[6] != StageFinalCheckQueue {
		t.Fatalf("flow must end in final check, got %s", plan.Flow[6])
	}
	if !plan.CanReturnToKitchen || !plan.CanReturnToDesign {
		t.Fatal("return flags must mirror team presence")
	}
}

func TestDeriveSetsNeedBothTeams(t *testing.T) {
	plan := Derive([]Item{ItemFor("sets", nil, nil)})
	if !plan.RequiresKitchen || !plan.RequiresDesign {
		t.Fatal("sets must involve both teams")
	}
}

func TestDeriveExplicitOverrideWins(t *testing.T) {
	design := true
	plan := Derive([]Item{ItemFor("cakes", nil, &design)})
	if !plan.RequiresDesign {
		t.Fatal("explicit design override must win over category default")
	}
	off := false
	plan = Derive([]Item{ItemFor("cakes", &off, nil)})
	if plan.RequiresKitchen {
		t.Fatal("explicit kitchen override must win over category default")
	}
}

func TestDeriveNoProductionWork(t *testing.T) {
	plan := Derive([]Item{ItemFor("sweets", nil, nil)})
	if len(plan.Flow) != 1 || plan.Flow[0] != StageFinalCheckQueue {
		t.Fatalf("expected final check only, got %v", plan.Flow)
	}
	if !plan.RequiresFinalCheck {
		t.Fatal("final check is never skipped")
	}
	if plan.InitialQueue != StageFinalCheckQueue {
		t.Fatalf("expected final check queue, got %s", plan.InitialQueue)
	}
}
