package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a page together with the shared layout
func ParseTemplate(name string) (*template.Template, error) {
	tmpl, err := template.ParseFS(TemplateFilesFS(), "layout.html", name)
	if err != nil {
		return nil, fmt.Errorf("[ParseTemplate] %s: %w", name, err)
	}
	return tmpl, nil
}

type pageTemplates struct {
	page     *template.Template
	login    *template.Template
	register *template.Template
}

func (s *Server) parsePages() (pageTemplates, error) {
	var pages pageTemplates
	var err error
	if pages.page, err = ParseTemplate("page.html"); err != nil {
		return pages, err
	}
	if pages.login, err = ParseTemplate("login.html"); err != nil {
		return pages, err
	}
	if pages.register, err = ParseTemplate("register.html"); err != nil {
		return pages, err
	}
	return pages, nil
}
