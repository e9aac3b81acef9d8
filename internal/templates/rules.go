package templates

import (
	"fmt"
	"strings"

	"WikiMover/internal/markup"
)

// Project names the source wiki in cross-wiki user references.
type Project struct {
	Interwiki string
	Lang      string
}

// UserAtProject renders the destination's attribution template for user.
func (p Project) UserAtProject(user string) string {
	return fmt.Sprintf("{{User at project|%s|%s|%s}}", user, p.Interwiki, p.Lang)
}

// SelfAuthorRule fills the author of a self-license with the current uploader
// when it is missing or blank.
type SelfAuthorRule struct {
	Name    string
	Project Project
}

func (r SelfAuthorRule) Title() string { return r.Name }

func (r SelfAuthorRule) Apply(t *markup.Template, env Env) {
	if p, ok := t.Lookup("author"); ok && strings.TrimSpace(p.String()) != "" {
		return
	}
	t.Set("author", r.Project.UserAtProject(env.CurrentUploader))
}

// RetitleRule renames a legacy self-license to its destination form and
// records the original uploader in Param. With Attribute set the value is
// the User at project template instead of the bare name.
type RetitleRule struct {
	From      string
	To        string
	Param     string
	Attribute bool
	Project   Project
}

func (r RetitleRule) Title() string { return r.From }

func (r RetitleRule) Apply(t *markup.Template, env Env) {
	t.SetName(r.To)
	value := env.OriginalUploader
	if r.Attribute {
		value = r.Project.UserAtProject(env.OriginalUploader)
	}
	t.Set(r.Param, value)
}

// DefaultRules returns the rewrites for templates whose meaning depends on
// the wiki they are used on.
func DefaultRules(project Project) []Rule {
	return []Rule{
		SelfAuthorRule{Name: "Self", Project: project},
		RetitleRule{From: "PD-self", To: "PD-user-en", Param: "1", Project: project},
		RetitleRule{From: "GFDL-self-with-disclaimers", To: "GFDL-user-en-with-disclaimers", Param: "1", Project: project},
		RetitleRule{From: "GFDL-self", To: "GFDL-self-en", Param: "author", Attribute: true, Project: project},
	}
}

// DefaultOwnWork lists templates that mark a file as the uploader's own work.
func DefaultOwnWork() []string {
	return []string{"Self", "PD-self", "GFDL-self", "GFDL-self-with-disclaimers"}
}

// DefaultStripped lists templates dropped from every rendered description.
func DefaultStripped() []string {
	return []string{"Bots", "Nobots"}
}
