package mvn

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"pkt.systems/mavdeck/schema"
)

const sourceGlob = "src/main/{java,kotlin}/**/*.{java,kt}"

var (
	packageRe    = regexp.MustCompile(`^\s*package\s+([\w.]+)`)
	javaMainRe   = regexp.MustCompile(`static\s+(public\s+)?void\s+main\s*\(`)
	kotlinMainRe = regexp.MustCompile(`^\s*fun\s+main\s*\(`)
	bootAppRe    = regexp.MustCompile(`@SpringBootApplication`)
)

// FindStarters returns launchable main classes across the project's
// modules. Pom-declared main classes and application classes come first.
func FindStarters(ctx context.Context, project schema.Project) ([]schema.Starter, error) {
	modules := project.Modules
	if len(modules) > 1 {
		modules = modules[1:]
	}
	results := make([][]schema.Starter, len(modules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPomReads)
	for i, m := range modules {
		g.Go(func() error {
			found, err := scanModule(gctx, m)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []schema.Starter
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

type candidate struct {
	class   string
	boot    bool
	fromPom bool
}

func scanModule(ctx context.Context, m schema.Module) ([]schema.Starter, error) {
	var found []candidate
	if m.MainClass != "" {
		found = append(found, candidate{class: m.MainClass, fromPom: true})
	}
	if m.Dir != "" {
		fsys := os.DirFS(m.Dir)
		matches, err := doublestar.Glob(fsys, sourceGlob)
		if err != nil {
			return nil, err
		}
		for _, rel := range matches {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c, ok := inspectSource(fsys, rel)
			if !ok || (m.MainClass != "" && c.class == m.MainClass) {
				continue
			}
			found = append(found, c)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].fromPom != found[j].fromPom {
			return found[i].fromPom
		}
		if found[i].boot != found[j].boot {
			return found[i].boot
		}
		return found[i].class < found[j].class
	})
	out := make([]schema.Starter, 0, len(found))
	for _, c := range found {
		out = append(out, schema.Starter{Name: c.class, Module: m.Name, MainClass: c.class})
	}
	return out, nil
}

func inspectSource(fsys fs.FS, rel string) (candidate, bool) {
	file, err := fsys.Open(rel)
	if err != nil {
		return candidate{}, false
	}
	defer func() { _ = file.Close() }()

	kotlin := strings.HasSuffix(rel, ".kt")
	var pkg string
	var hasMain, boot bool
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if pkg == "" {
			if m := packageRe.FindStringSubmatch(line); m != nil {
				pkg = m[1]
			}
		}
		if bootAppRe.MatchString(line) {
			boot = true
		}
		if kotlin && kotlinMainRe.MatchString(line) {
			hasMain = true
		}
		if !kotlin && javaMainRe.MatchString(line) {
			hasMain = true
		}
	}
	if !hasMain {
		return candidate{}, false
	}
	class := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	if kotlin {
		class += "Kt"
	}
	if pkg != "" {
		class = pkg + "." + class
	}
	return candidate{class: class, boot: boot}, true
}
