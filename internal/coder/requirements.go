package coder

import (
	"sort"
	"strings"
)

// importSignature maps source fragments to the packages they imply.
// Matching is plain substring search over the generated code; this is
// best-effort and only ever adds a requirements.txt, never fails a call.
var importSignatures = []struct {
	fragments []string
	packages  []string
}{
	{[]string{"from flask import", "import flask", "Flask("}, []string{"flask"}},
	{[]string{"from fastapi import", "import fastapi", "FastAPI("}, []string{"fastapi", "uvicorn"}},
	{[]string{"from sqlalchemy import", "import sqlalchemy"}, []string{"sqlalchemy"}},
	{[]string{"from pymongo import", "import pymongo"}, []string{"pymongo"}},
	{[]string{"import pandas", "from pandas import"}, []string{"pandas"}},
	{[]string{"import numpy", "from numpy import"}, []string{"numpy"}},
	{[]string{"import requests", "from requests import"}, []string{"requests"}},
	{[]string{"import streamlit", "from streamlit import"}, []string{"streamlit"}},
}

// sniffRequirements scans generated Python files for known imports and
// renders a requirements.txt body, or "" when nothing was detected.
func sniffRequirements(files map[string]string) string {
	var code strings.Builder
	for name, content := range files {
		if strings.HasSuffix(name, ".py") {
			code.WriteString(content)
			code.WriteByte('\n')
		}
	}
	if code.Len() == 0 {
		return ""
	}

	all := code.String()
	found := make(map[string]bool)
	for _, sig := range importSignatures {
		for _, fragment := range sig.fragments {
			if strings.Contains(all, fragment) {
				for _, pkg := range sig.packages {
					found[pkg] = true
				}
				break
			}
		}
	}
	if len(found) == 0 {
		return ""
	}

	packages := make([]string, 0, len(found))
	for pkg := range found {
		packages = append(packages, pkg)
	}
	sort.Strings(packages)
	return strings.Join(packages, "\n") + "\n"
}
