// Package xmlio reads and writes Wazuh XML rule files.
//
// Wazuh rule files use a pseudo-XML syntax with many root-level <group>
// tags, which crashes any regular XML parser. The reader wraps the file in a
// synthetic <rules> root that acts as a single root for the whole document.
// The document tree is kept around so write-back preserves comments and every
// attribute or element the engine does not understand.
package xmlio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"rulewarden/core"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// maxRuleFileSize bounds a single rules file - protection against memory
// exhaustion from a bad path argument.
const maxRuleFileSize = 10 * 1024 * 1024 // 10MB

// Collection is one loaded rules file together with its parsed document.
type Collection struct {
	Filename string
	Path     string

	doc  *etree.Document
	root *etree.Element // the synthetic wrapper element
}

// Corpus is an ordered set of loaded collections.
type Corpus struct {
	Collections []*Collection

	log *zap.SugaredLogger
}

// logger returns the corpus logger, falling back to a no-op for corpora
// assembled by hand in tests.
func (c *Corpus) logger() *zap.SugaredLogger {
	if c.log == nil {
		c.log = zap.NewNop().Sugar()
	}
	return c.log
}

// LoadDirectory loads every *.xml file in the directory, in name order so
// corpus ordering is reproducible.
func LoadDirectory(dir string, log *zap.SugaredLogger) (*Corpus, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.xml"))
	if err != nil {
		return nil, fmt.Errorf("scan rules directory: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no rule files found in %s", dir)
	}
	sort.Strings(paths)

	corpus := &Corpus{log: log}
	for _, path := range paths {
		col, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		log.Infow("Loaded collection", "file", col.Filename, "rules", col.NumRules())
		corpus.Collections = append(corpus.Collections, col)
	}
	return corpus, nil
}

// LoadFile loads a single rules file.
func LoadFile(path string) (*Collection, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat rules file: %w", err)
	}
	if info.Size() > maxRuleFileSize {
		return nil, fmt.Errorf("rules file %s exceeds maximum size of %d bytes", path, maxRuleFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	// Wrap the many root tags inside an artificial single root.
	wrapped := make([]byte, 0, len(data)+len("<rules></rules>"))
	wrapped = append(wrapped, []byte("<rules>")...)
	wrapped = append(wrapped, data...)
	wrapped = append(wrapped, []byte("</rules>")...)

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(wrapped); err != nil {
		return nil, &core.ParseError{
			Collection: filepath.Base(path),
			Reason:     fmt.Sprintf("malformed XML: %v", err),
		}
	}

	root := doc.SelectElement("rules")
	if root == nil {
		return nil, &core.ParseError{
			Collection: filepath.Base(path),
			Reason:     "document has no content",
		}
	}

	return &Collection{
		Filename: filepath.Base(path),
		Path:     path,
		doc:      doc,
		root:     root,
	}, nil
}

// groupElements returns the top-level <group> elements in document order.
func (c *Collection) groupElements() []*etree.Element {
	return c.root.SelectElements("group")
}

// ruleElements returns every <rule> element in document order.
func (c *Collection) ruleElements() []*etree.Element {
	var rules []*etree.Element
	for _, group := range c.groupElements() {
		rules = append(rules, group.SelectElements("rule")...)
	}
	return rules
}

// NumRules returns the number of rules in the collection.
func (c *Collection) NumRules() int {
	return len(c.ruleElements())
}

// NumRules returns the number of rules across all collections.
func (c *Corpus) NumRules() int {
	n := 0
	for _, col := range c.Collections {
		n += col.NumRules()
	}
	return n
}

// NumCollections returns the number of loaded collections.
func (c *Corpus) NumCollections() int {
	return len(c.Collections)
}

// Raw converts the parsed documents into the raw records consumed by
// core.Load. Attribute and element values flow through untouched.
func (c *Corpus) Raw() []core.RawCollection {
	out := make([]core.RawCollection, 0, len(c.Collections))
	for _, col := range c.Collections {
		rawCol := core.RawCollection{Filename: col.Filename}
		for _, groupEl := range col.groupElements() {
			rawGroup := core.RawGroup{
				Name:  groupEl.SelectAttrValue("name", ""),
				Attrs: attrMap(groupEl),
			}
			for _, ruleEl := range groupEl.SelectElements("rule") {
				rawGroup.Rules = append(rawGroup.Rules, core.RawRule{
					Attrs:  attrMap(ruleEl),
					Fields: fieldMap(ruleEl),
				})
			}
			rawCol.Groups = append(rawCol.Groups, rawGroup)
		}
		out = append(out, rawCol)
	}
	return out
}

// attrMap collects an element's attributes.
func attrMap(el *etree.Element) map[string]string {
	attrs := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		attrs[a.Key] = a.Value
	}
	return attrs
}

// fieldMap collects an element's children as tag -> text. Repeated
// description elements concatenate directly, the way Wazuh builds the
// effective description; other repeated tags (e.g. several if_sid variants)
// are joined with a comma, matching the comma-separated syntax Wazuh uses
// inside those elements anyway.
func fieldMap(el *etree.Element) map[string]string {
	fields := make(map[string]string)
	for _, child := range el.ChildElements() {
		text := child.Text()
		if existing, ok := fields[child.Tag]; ok {
			sep := ","
			if child.Tag == core.FieldDescription {
				sep = ""
			}
			fields[child.Tag] = existing + sep + text
			continue
		}
		fields[child.Tag] = text
	}
	return fields
}

// ApplyModel patches the parsed documents from the reconciled model. Only
// the fields the engine owns are touched: the level and overwrite
// attributes, and a description element when the fixer synthesized one.
// Everything else in the documents stays byte-for-byte as loaded.
func (c *Corpus) ApplyModel(m *core.RuleModel) error {
	for _, col := range c.Collections {
		for _, ruleEl := range col.ruleElements() {
			idStr := ruleEl.SelectAttrValue(core.AttrID, "")
			id, err := strconv.Atoi(idStr)
			if err != nil {
				return &core.ParseError{
					Collection: col.Filename,
					Reason:     fmt.Sprintf("rule id %q is not an integer", idStr),
				}
			}
			rule, err := m.Lookup(id)
			if err != nil {
				return fmt.Errorf("apply model to %s: %w", col.Filename, err)
			}

			if rule.HasLevel {
				ruleEl.CreateAttr(core.AttrLevel, strconv.Itoa(rule.Level))
			}
			if rule.Overwrite {
				ruleEl.CreateAttr(core.AttrOverwrite, "yes")
			}
			if rule.Description != "" && ruleEl.SelectElement(core.FieldDescription) == nil {
				ruleEl.CreateElement(core.FieldDescription).SetText(rule.Description)
			}
		}
	}
	return nil
}

// Bytes serializes one collection back to the original multi-root layout,
// stripping the synthetic wrapper.
func (c *Collection) Bytes() ([]byte, error) {
	out, err := c.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", c.Filename, err)
	}

	open := bytes.Index(out, []byte("<rules>"))
	end := bytes.LastIndex(out, []byte("</rules>"))
	if open < 0 || end < 0 {
		return nil, fmt.Errorf("serialize %s: wrapper element missing", c.Filename)
	}
	inner := out[open+len("<rules>") : end]

	// Wazuh's parser expects a literal '>' inside regex elements.
	inner = bytes.ReplaceAll(inner, []byte("&gt;"), []byte(">"))

	return inner, nil
}

// WriteDirectory writes every collection into the directory under its
// original filename. Callers invoke this only after the full new model and
// diff are built, so a write failure never leaves a partially-reconciled
// corpus behind.
func (c *Corpus) WriteDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("the place to write rules must be a writable directory: %s", dir)
	}

	for _, col := range c.Collections {
		data, err := col.Bytes()
		if err != nil {
			return err
		}
		path := filepath.Join(dir, col.Filename)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write rules file: %w", err)
		}
		c.logger().Infow("Wrote collection", "file", path)
	}
	return nil
}

// WriteFile writes all collections into a single rules file.
func (c *Corpus) WriteFile(path string) error {
	var buf bytes.Buffer
	for _, col := range c.Collections {
		data, err := col.Bytes()
		if err != nil {
			return err
		}
		buf.Write(data)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write rules file: %w", err)
	}
	c.logger().Infow("Wrote rules", "file", path, "collections", len(c.Collections))
	return nil
}
