// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package onenote talks to the OneNote desktop application through its
// automation interface: fetching the notebook hierarchy and publishing a
// notebook to a package file.
package onenote

import "context"

// Namespace2013 is the XML namespace of hierarchy documents produced with
// the OneNote 2013 schema.
const Namespace2013 = "http://schemas.microsoft.com/office/onenote/2013/onenote"

// HierarchyScope selects how deep GetHierarchy descends below the start node.
type HierarchyScope int

const (
	ScopeSelf      HierarchyScope = 0
	ScopeChildren  HierarchyScope = 1
	ScopeNotebooks HierarchyScope = 2
	ScopeSections  HierarchyScope = 3
	ScopePages     HierarchyScope = 4
)

// PublishFormat is the export format code accepted by Publish.
type PublishFormat int

const (
	FormatOneNote        PublishFormat = 0
	FormatOneNotePackage PublishFormat = 1
	FormatMHTML          PublishFormat = 2
	FormatPDF            PublishFormat = 3
	FormatXPS            PublishFormat = 4
	FormatWord           PublishFormat = 5
	FormatEMF            PublishFormat = 6
	FormatHTML           PublishFormat = 7
	FormatOneNote2007    PublishFormat = 8
)

// Extension returns the file extension OneNote uses for the format.
func (f PublishFormat) Extension() string {
	switch f {
	case FormatOneNote, FormatOneNote2007:
		return ".one"
	case FormatOneNotePackage:
		return ".onepkg"
	case FormatMHTML:
		return ".mht"
	case FormatPDF:
		return ".pdf"
	case FormatXPS:
		return ".xps"
	case FormatWord:
		return ".docx"
	case FormatEMF:
		return ".emf"
	case FormatHTML:
		return ".html"
	default:
		return ""
	}
}

// Application is the subset of the OneNote automation interface the
// exporter needs.
type Application interface {
	// GetHierarchy returns the hierarchy XML below startNodeID. An empty
	// startNodeID means all notebooks of the current user.
	GetHierarchy(ctx context.Context, startNodeID string, scope HierarchyScope) (string, error)

	// Publish asks OneNote to export the object with the given ID to path.
	// OneNote may keep writing the file after the call returns.
	Publish(ctx context.Context, id, path string, format PublishFormat) error
}
