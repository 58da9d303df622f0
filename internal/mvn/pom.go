package mvn

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

const (
	frameworkPluginArtifact = "spring-boot-maven-plugin"
	execPluginArtifact      = "exec-maven-plugin"
)

var mainClassProperties = []string{"start-class", "main.class", "mainClass", "exec.mainClass"}

type pomFile struct {
	XMLName    xml.Name     `xml:"project"`
	ArtifactID string       `xml:"artifactId"`
	Name       string       `xml:"name"`
	Packaging  string       `xml:"packaging"`
	Modules    []string     `xml:"modules>module"`
	Profiles   []pomProfile `xml:"profiles>profile"`
	Properties pomProps     `xml:"properties"`
	Build      pomBuild     `xml:"build"`
}

type pomProfile struct {
	ID      string   `xml:"id"`
	Modules []string `xml:"modules>module"`
}

type pomProps struct {
	Entries []pomEntry `xml:",any"`
}

type pomEntry struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type pomBuild struct {
	Plugins          []pomPlugin `xml:"plugins>plugin"`
	PluginManagement struct {
		Plugins []pomPlugin `xml:"plugins>plugin"`
	} `xml:"pluginManagement"`
}

type pomPlugin struct {
	GroupID       string `xml:"groupId"`
	ArtifactID    string `xml:"artifactId"`
	Configuration struct {
		MainClass string `xml:"mainClass"`
	} `xml:"configuration"`
}

func readPom(path string) (pomFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pomFile{}, err
	}
	var pom pomFile
	if err := xml.Unmarshal(data, &pom); err != nil {
		return pomFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return pom, nil
}

func (p pomFile) property(name string) string {
	for _, e := range p.Properties.Entries {
		if e.XMLName.Local == name {
			return strings.TrimSpace(e.Value)
		}
	}
	return ""
}

// plugins returns the declared build plugins; managed-only plugins are not
// active and are ignored.
func (p pomFile) plugins() []pomPlugin {
	return p.Build.Plugins
}

func (p pomFile) hasPlugin(artifact string) bool {
	for _, pl := range p.plugins() {
		if strings.TrimSpace(pl.ArtifactID) == artifact {
			return true
		}
	}
	return false
}

func (p pomFile) mainClass() string {
	for _, pl := range p.plugins() {
		if mc := strings.TrimSpace(pl.Configuration.MainClass); mc != "" && !strings.Contains(mc, "${") {
			return mc
		}
	}
	for _, key := range mainClassProperties {
		if v := p.property(key); v != "" && !strings.Contains(v, "${") {
			return v
		}
	}
	return ""
}

func (p pomFile) profileIDs() []string {
	var out []string
	for _, prof := range p.Profiles {
		if id := strings.TrimSpace(prof.ID); id != "" {
			out = append(out, id)
		}
	}
	return out
}
