package connector

import "testing"

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(NewJira())
	r.Register(NewWazuh())

	if _, ok := r.Get("jira"); !ok {
		t.Error("expected jira to be registered")
	}
	if _, ok := r.Get("nope"); ok {
		t.Error("unexpected hit for unregistered name")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(NewWazuh())
	r.Register(NewElastic())
	r.Register(NewJira())

	names := r.Names()
	want := []string{"elastic", "jira", "wazuh"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()

	r := NewRegistry()
	r.Register(NewJira())
	r.Register(NewJira())
}

func TestAllFamiliesHaveCatalogues(t *testing.T) {
	families := []Connector{
		NewJira(), NewWazuh(), NewFortigate(), NewElastic(), NewKibana(), NewProxmox(),
	}

	seen := make(map[string]bool)
	for _, c := range families {
		if c.Name() == "" {
			t.Error("connector with empty name")
		}
		if seen[c.Name()] {
			t.Errorf("duplicate family name %q", c.Name())
		}
		seen[c.Name()] = true

		if len(c.Catalogue()) == 0 {
			t.Errorf("%s: empty query catalogue", c.Name())
		}
		for _, q := range c.Catalogue() {
			if q.ID == "" || q.Path == "" {
				t.Errorf("%s: catalogue entry missing id or path: %+v", c.Name(), q)
			}
		}
	}
}
