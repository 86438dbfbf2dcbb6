package project

import "fmt"

// Object-store key layout for one project, all scoped under its domain.
// The published snapshot always lives at the same key, so the public URL
// never changes across versions.

const keyRoot = "website"

// SiteKey is where the published HTML snapshot lives.
func SiteKey(domain string) string {
	return fmt.Sprintf("%s/%s/index.html", keyRoot, domain)
}

// AssetKey is where one uploaded asset's bytes live.
func AssetKey(domain, filename string) string {
	return fmt.Sprintf("%s/%s/assets/%s", keyRoot, domain, filename)
}

// DomainPrefix covers every object belonging to the domain.
func DomainPrefix(domain string) string {
	return fmt.Sprintf("%s/%s/", keyRoot, domain)
}

// KeyRootPrefix covers every object the service ever writes.
func KeyRootPrefix() string {
	return keyRoot + "/"
}
