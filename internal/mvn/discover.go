package mvn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"pkt.systems/mavdeck/internal/git"
	"pkt.systems/mavdeck/internal/logx"
	"pkt.systems/mavdeck/schema"
)

const (
	pomName      = "pom.xml"
	maxPomReads  = 8
	maxNestDepth = 6
)

// Discoverer reads pom files to describe a project.
type Discoverer struct{}

// Discover returns the project rooted at root. The first module is always
// the reactor root ".".
func (Discoverer) Discover(ctx context.Context, root string) (schema.Project, error) {
	rootPom := filepath.Join(root, pomName)
	pom, err := readPom(rootPom)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return schema.Project{}, fmt.Errorf("%s: %w", root, schema.ErrNotProject)
		}
		return schema.Project{}, err
	}
	if err := ctx.Err(); err != nil {
		return schema.Project{}, err
	}

	project := schema.Project{
		Root:       root,
		Name:       projectName(root, pom),
		HasWrapper: HasWrapper(root),
	}
	rootModule := moduleFrom(schema.RootModule, root, pom)
	project.Modules = append(project.Modules, rootModule)

	profiles := newOrderedSet()
	profiles.add(pom.profileIDs()...)

	children, err := readModules(ctx, root, "", moduleNames(pom), 0)
	if err != nil {
		return schema.Project{}, err
	}
	for _, child := range children {
		project.Modules = append(project.Modules, child.module)
		profiles.add(child.profiles...)
	}
	project.Profiles = profiles.values()
	if branch, ok := git.Branch(ctx, root); ok {
		project.Branch = branch
	}

	logx.Ctx(ctx).Debug("pom discovery complete", "root", root, "modules", len(project.Modules), "profiles", len(project.Profiles))
	return project, nil
}

type discovered struct {
	module   schema.Module
	profiles []string
}

// readModules reads sibling module poms concurrently and recurses into
// aggregators. Output keeps declaration order.
func readModules(ctx context.Context, root, parent string, names []string, depth int) ([]discovered, error) {
	if len(names) == 0 || depth > maxNestDepth {
		return nil, nil
	}
	results := make([][]discovered, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPomReads)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rel := path.Clean(path.Join(parent, filepath.ToSlash(name)))
			dir := filepath.Join(root, filepath.FromSlash(rel))
			pom, err := readPom(filepath.Join(dir, pomName))
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					results[i] = []discovered{{module: schema.Module{Name: rel, Dir: dir}}}
					return nil
				}
				return err
			}
			out := []discovered{{module: moduleFrom(rel, dir, pom), profiles: pom.profileIDs()}}
			nested, err := readModules(gctx, root, rel, moduleNames(pom), depth+1)
			if err != nil {
				return err
			}
			results[i] = append(out, nested...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []discovered
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func moduleFrom(name, dir string, pom pomFile) schema.Module {
	m := schema.Module{
		Name:         name,
		Dir:          dir,
		Packaging:    strings.TrimSpace(pom.Packaging),
		FrameworkRun: pom.hasPlugin(frameworkPluginArtifact),
		ExecPlugin:   pom.hasPlugin(execPluginArtifact),
		MainClass:    pom.mainClass(),
	}
	if m.Packaging == "" {
		m.Packaging = "jar"
	}
	for _, pl := range pom.plugins() {
		if id := strings.TrimSpace(pl.ArtifactID); id != "" {
			m.DeclaredPlugin = append(m.DeclaredPlugin, id)
		}
	}
	return m
}

func moduleNames(pom pomFile) []string {
	set := newOrderedSet()
	set.add(pom.Modules...)
	for _, prof := range pom.Profiles {
		set.add(prof.Modules...)
	}
	return set.values()
}

func projectName(root string, pom pomFile) string {
	if name := strings.TrimSpace(pom.Name); name != "" && !strings.Contains(name, "${") {
		return name
	}
	if id := strings.TrimSpace(pom.ArtifactID); id != "" {
		return id
	}
	return filepath.Base(root)
}

type orderedSet struct {
	seen  map[string]struct{}
	order []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}}
}

func (s *orderedSet) add(values ...string) {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.order = append(s.order, v)
	}
}

func (s *orderedSet) values() []string {
	return append([]string(nil), s.order...)
}
