package gemini

import "strings"

// mimeByExtension is the deterministic extension-to-mimetype table used
// by the tree builder to infer a mimetype for Normal, Link, and Dynamic
// entries that don't declare one explicitly. Unknown extensions fall
// back to text/plain.
var mimeByExtension = map[string]string{
	"gmi": "text/gemini", "gemini": "text/gemini",
	"txt":  "text/plain",
	"html": "text/html", "htm": "text/html",
	"aac":   "audio/aac",
	"azw":   "application/vnd.amazon.ebook",
	"bin":   "application/octet-stream",
	"bmp":   "image/bmp",
	"css":   "text/css",
	"csv":   "text/csv",
	"doc":   "application/msword",
	"docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"eot":   "application/vnd.ms-fontobject",
	"epub":  "application/epub+zip",
	"gz":    "application/gzip",
	"gif":   "image/gif",
	"ico":   "image/vnd.microsoft.icon",
	"ics":   "text/calendar",
	"jar":   "application/java-archive",
	"jpeg":  "image/jpeg", "jpg": "image/jpeg",
	"js": "text/javascript", "mjs": "text/javascript",
	"json":   "application/json",
	"jsonld": "application/ld+json",
	"mid":    "audio/midi", "midi": "audio/midi",
	"mp3":  "audio/mpeg",
	"mpeg": "video/mpeg",
	"mpkg": "application/vnd.apple.installer+xml",
	"odp":  "application/vnd.oasis.opendocument.presentation",
	"ods":  "application/vnd.oasis.opendocument.spreadsheet",
	"odt":  "application/vnd.oasis.opendocument.text",
	"oga":  "audio/ogg",
	"ogv":  "video/ogg",
	"ogx":  "application/ogg",
	"opus": "audio/opus",
	"otf":  "font/otf",
	"png":  "image/png",
	"pdf":  "application/pdf",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"rar":  "application/vnd.rar",
	"rtf":  "application/rtf",
	"svg":  "image/svg+xml",
	"tif":  "image/tiff", "tiff": "image/tiff",
	"ts":  "video/mp2t",
	"ttf": "font/ttf",
	"vsd": "application/vnd.visio",
	"wav": "audio/wav",
	"weba": "audio/webm",
	"webm": "video/webm",
	"webp": "image/webp",
	"woff": "font/woff", "woff2": "font/woff2",
	"xhtml": "application/xhtml+xml",
	"xls":   "application/vnd.ms-excel",
	"xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xml":   "text/xml",
	"xul":   "application/vnd.mozilla.xul+xml",
	"zip":   "application/zip",
	"3gp":   "video/3gpp", "3g2": "video/3gpp2",
}

// MimeByPath returns the mime type for p's final component, by
// extension, defaulting to text/plain for unknown or absent extensions.
func MimeByPath(p Path) string {
	name := p.Last()
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "text/plain"
	}
	ext := name[idx+1:]
	if mime, ok := mimeByExtension[ext]; ok {
		return mime
	}
	return "text/plain"
}
