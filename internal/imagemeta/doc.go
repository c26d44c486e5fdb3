// Package imagemeta audits downloaded images for privacy-sensitive
// EXIF metadata. Photographs published on a site often carry GPS
// coordinates, device serial numbers, or author information that the
// operator never intended to share; the audit surfaces those tags so
// a mirror is not re-published with them unnoticed.
package imagemeta
