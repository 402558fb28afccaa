// Package group implements the static group/roster configuration table
// described in spec section 6 ("External interfaces" / group
// configuration) and section 3 ("Group" data model). Group membership,
// passwords, and per-participant public key locations are loaded once
// at process start and treated as read-only for the life of the
// process, matching the teacher's config.Config "load once, validate,
// use" pattern.
package group

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/luxfi/dcnet/pkg/party"
)

// Participant is a persistent group member identity: a name unique
// within the group and the filesystem location of its RSA public key.
// The corresponding private key lives only on the owning client and is
// never loaded by the coordinator.
type Participant struct {
	Name          party.ID `json:"name"`
	PublicKeyPath string   `json:"public_key_path"`
}

// Group is the fixed, ordered roster of a named group plus its shared
// join password. It is immutable after construction; round state lives
// separately (see internal/coordinator).
type Group struct {
	Name     string                       `json:"name"`
	Password string                       `json:"password"`
	Roster   party.IDSlice                `json:"-"`
	members  map[party.ID]*Participant    `json:"-"`
}

// NewGroup builds a Group from an ordered roster of participants. The
// roster order is preserved verbatim: it is the order active-participant
// lists are reported in. Round results carry a name-keyed map and have
// no roster order.
func NewGroup(name, password string, participants []*Participant) (*Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group: name must not be empty")
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("group %q: roster must not be empty", name)
	}
	g := &Group{
		Name:     name,
		Password: password,
		members:  make(map[party.ID]*Participant, len(participants)),
	}
	for _, p := range participants {
		if p.Name == "" {
			return nil, fmt.Errorf("group %q: participant with empty name", name)
		}
		if _, dup := g.members[p.Name]; dup {
			return nil, fmt.Errorf("group %q: duplicate participant %q", name, p.Name)
		}
		g.members[p.Name] = p
		g.Roster = append(g.Roster, p.Name)
	}
	return g, nil
}

// Participant returns the participant with the given name, if it is a
// member of this group's roster.
func (g *Group) Participant(name party.ID) (*Participant, bool) {
	p, ok := g.members[name]
	return p, ok
}

// Size returns the number of roster members (the "roster size" of
// spec section 3's round-slot terminal condition).
func (g *Group) Size() int {
	return len(g.Roster)
}

// OtherMembers returns the roster with name removed, the set of peers
// a given participant holds a pairwise secret with (spec section 4.3,
// N).
func (g *Group) OtherMembers(name party.ID) party.IDSlice {
	return g.Roster.Without(name)
}

// groupFile is the on-disk JSON shape for LoadGroups: a list of groups,
// each naming a key directory from which "<lowercase name>_public.pem"
// files are resolved, matching the per-participant key directory
// convention of spec section 6.
type groupFile struct {
	Name     string   `json:"name"`
	Password string   `json:"password"`
	KeyDir   string   `json:"key_dir"`
	Roster   []string `json:"roster"`
}

// LoadGroups reads a JSON configuration file describing one or more
// groups and resolves each participant's public key path from the
// group's key directory using the "<lowercase_name>_public.pem"
// convention.
func LoadGroups(path string) ([]*Group, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("group: reading config %q: %w", path, err)
	}
	var files []groupFile
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("group: parsing config %q: %w", path, err)
	}
	groups := make([]*Group, 0, len(files))
	for _, f := range files {
		participants := make([]*Participant, 0, len(f.Roster))
		for _, name := range f.Roster {
			keyPath := filepath.Join(f.KeyDir, strings.ToLower(name)+"_public.pem")
			participants = append(participants, &Participant{
				Name:          party.ID(name),
				PublicKeyPath: keyPath,
			})
		}
		g, err := NewGroup(f.Name, f.Password, participants)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// PrivateKeyPath resolves the conventional private key file location
// for a participant within a given key directory:
// "<key_dir>/<lowercase_name>_private.pem".
func PrivateKeyPath(keyDir string, name party.ID) string {
	return filepath.Join(keyDir, strings.ToLower(string(name))+"_private.pem")
}

// Reference returns the three groups used by the reference
// implementation (spec.md's distillation source), useful for local
// testing and demos without a config file on disk.
func Reference(keyDir string) []*Group {
	mk := func(names ...string) []*Participant {
		out := make([]*Participant, len(names))
		for i, n := range names {
			out[i] = &Participant{
				Name:          party.ID(n),
				PublicKeyPath: filepath.Join(keyDir, strings.ToLower(n)+"_public.pem"),
			}
		}
		return out
	}
	test, _ := NewGroup("test", "password", mk("Alice", "Bob"))
	demo, _ := NewGroup("demo", "CS4600", mk("Andrew", "Josh", "Hannah"))
	big, _ := NewGroup("big", "bigpassword", mk(strings.Split("a b c d e f g h i j k l m n o p q r s t u v w x y z", " ")...))
	return []*Group{test, demo, big}
}
