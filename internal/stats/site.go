package stats

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed sites.yaml
var sitesYAML []byte

// SiteDescriptor declares how one production site reports its shifts:
// which column carries worked hours, which metric columns to surface,
// and whether the technology sensor feed is folded into each row.
type SiteDescriptor struct {
	Tag           string   `yaml:"tag"`
	Name          string   `yaml:"name"`
	HoursField    string   `yaml:"hours_field"`
	CrewField     string   `yaml:"crew_field"`
	MergeSnapshot bool     `yaml:"merge_snapshot"`
	Tracked       []string `yaml:"tracked"`
}

type siteFile struct {
	Sites []SiteDescriptor `yaml:"sites"`
}

var sites []SiteDescriptor

func init() {
	var f siteFile
	if err := yaml.Unmarshal(sitesYAML, &f); err != nil {
		panic(eris.Wrap(err, "stats: parse embedded site descriptors"))
	}
	sites = f.Sites
}

// Sites returns all configured site descriptors in declaration order.
func Sites() []SiteDescriptor {
	out := make([]SiteDescriptor, len(sites))
	copy(out, sites)
	return out
}

// SiteByTag looks up a descriptor by its wire tag.
func SiteByTag(tag string) (SiteDescriptor, error) {
	for _, s := range sites {
		if s.Tag == tag {
			return s, nil
		}
	}
	return SiteDescriptor{}, eris.Errorf("stats: unknown site %q", tag)
}
