package updatefeed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// Filename is the feed name referenced by update_url.
	Filename = "update_manifest.xml"

	// Namespace is the gupdate response namespace.
	Namespace = "http://www.google.com/update2/response"

	// Protocol is the gupdate protocol version written into new feeds.
	Protocol = "2.0"

	// fileMode is used when the feed is written.
	fileMode = 0o644
)

// ErrNotFound is returned by Load when the feed file does not exist yet.
var ErrNotFound = errors.New("update feed not found")

// Feed is the <gupdate> root element.
type Feed struct {
	XMLName   xml.Name   `xml:"gupdate"`
	Namespace string     `xml:"xmlns,attr,omitempty"`
	Protocol  string     `xml:"protocol,attr,omitempty"`
	Attrs     []xml.Attr `xml:",any,attr"`
	Apps      []*App     `xml:"app"`
}

// App describes one hosted extension.
type App struct {
	ID          string       `xml:"appid,attr"`
	Attrs       []xml.Attr   `xml:",any,attr"`
	UpdateCheck *UpdateCheck `xml:"updatecheck"`
}

// UpdateCheck points at the archive currently served for an app.
type UpdateCheck struct {
	Codebase string     `xml:"codebase,attr"`
	Version  string     `xml:"version,attr"`
	Attrs    []xml.Attr `xml:",any,attr"`
}

// New returns an empty feed.
func New() *Feed {
	return &Feed{
		XMLName:   xml.Name{Local: "gupdate"},
		Namespace: Namespace,
		Protocol:  Protocol,
	}
}

// Load reads a feed from disk.
func Load(path string) (*Feed, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read update feed: %w", err)
	}

	return Parse(contents)
}

// Parse decodes feed contents.
func Parse(contents []byte) (*Feed, error) {
	feed := new(Feed)
	if err := xml.Unmarshal(contents, feed); err != nil {
		return nil, fmt.Errorf("decode update feed: %w", err)
	}

	feed.Attrs = dropNamespaceDecls(feed.Attrs)
	for _, app := range feed.Apps {
		app.Attrs = dropNamespaceDecls(app.Attrs)
		if app.UpdateCheck != nil {
			app.UpdateCheck.Attrs = dropNamespaceDecls(app.UpdateCheck.Attrs)
		}
	}

	return feed, nil
}

// Find returns the app with the given id, or nil.
func (f *Feed) Find(appID string) *App {
	for _, app := range f.Apps {
		if app.ID == appID {
			return app
		}
	}

	return nil
}

// ServedVersion returns the version advertised for appID.
func (f *Feed) ServedVersion(appID string) (string, bool) {
	app := f.Find(appID)
	if app == nil || app.UpdateCheck == nil {
		return "", false
	}

	return app.UpdateCheck.Version, true
}

// Upsert points appID at codebase/version, adding the app when it is new.
func (f *Feed) Upsert(appID, codebase, version string) *App {
	app := f.Find(appID)
	if app == nil {
		app = &App{ID: appID}
		f.Apps = append(f.Apps, app)
	}

	if app.UpdateCheck == nil {
		app.UpdateCheck = new(UpdateCheck)
	}

	app.UpdateCheck.Codebase = codebase
	app.UpdateCheck.Version = version

	return app
}

// Marshal renders the feed with an XML declaration.
func (f *Feed) Marshal() ([]byte, error) {
	// The namespace is written through the xmlns attribute only.
	f.XMLName = xml.Name{Local: "gupdate"}
	if f.Namespace == "" {
		f.Namespace = Namespace
	}

	if f.Protocol == "" {
		f.Protocol = Protocol
	}

	body, err := xml.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode update feed: %w", err)
	}

	contents := make([]byte, 0, len(xml.Header)+len(body)+1)
	contents = append(contents, xml.Header...)
	contents = append(contents, body...)

	return append(contents, '\n'), nil
}

// Save writes the feed to path.
func (f *Feed) Save(path string) error {
	contents, err := f.Marshal()
	if err != nil {
		return err
	}

	if err = os.WriteFile(filepath.Clean(path), contents, fileMode); err != nil {
		return fmt.Errorf("write update feed: %w", err)
	}

	return nil
}

// dropNamespaceDecls removes xmlns declarations captured by ",any,attr";
// encoding/xml cannot write them back verbatim.
func dropNamespaceDecls(attrs []xml.Attr) []xml.Attr {
	kept := attrs[:0]

	for _, attr := range attrs {
		if attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns") {
			continue
		}

		kept = append(kept, attr)
	}

	if len(kept) == 0 {
		return nil
	}

	return kept
}
