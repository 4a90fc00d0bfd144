package gemini

import (
	"crypto/x509"
	"os"
	"strings"
)

// Handler resolves a parsed Request against an immutable UrlTree and
// produces a complete response. One Handler is shared by every
// connection; nothing it touches after construction is mutable except
// through Executor's own temp-file registry.
type Handler struct {
	tree     *UrlTree
	executor *Executor
	cacheDir string
}

func newHandler(tree *UrlTree, executor *Executor, cacheDir string) *Handler {
	return &Handler{tree: tree, executor: executor, cacheDir: cacheDir}
}

// Handle resolves req against the tree and returns the Response to
// deliver, and the originating *Error when the response is an error
// response (so the caller can log it when settings.Log is set).
func (h *Handler) Handle(req *Request) (*Response, *Error) {
	resp, err := h.build(req)
	if err != nil {
		return h.errorResponse(err), err
	}
	return resp, nil
}

func (h *Handler) build(req *Request) (*Response, *Error) {
	path := req.Path
	settings := h.tree.Settings
	if strings.TrimSpace(path) == "" && settings.Homepage != nil {
		path = *settings.Homepage
	}

	node, err := h.searchInTree(req.Domain, path)
	if err != nil {
		return nil, err
	}

	body, mime, err := h.getResource(node, req.Query, req.Certificate)
	if err != nil {
		return nil, err
	}

	return &Response{Status: StatusSuccess, Meta: h.buildMeta(mime), Body: body}, nil
}

func (h *Handler) searchInTree(domain, path string) (*UrlNode, *Error) {
	for _, root := range h.tree.Roots {
		if root.Name != domain {
			continue
		}
		// Request paths always carry the trailing slash added by
		// ParseRequest's URL padding; a tree leaf is never named "", so
		// that padding is stripped before descent rather than treated
		// as a literal final path component.
		node := root.ChildFromPath(NewPath(strings.TrimSuffix(path, "/")))
		if node == nil {
			return nil, newError(StatusNotFound, "Resource not found. Path: %s", path)
		}
		return node, nil
	}
	return nil, newError(StatusProxyRequestRefused, "This server does not handle proxy requests")
}

func (h *Handler) getResource(node *UrlNode, query *string, cert *x509.Certificate) ([]byte, string, *Error) {
	if node.Data == nil {
		return nil, "", newError(StatusNotFound, "Resource not found")
	}
	mime := node.Data.MetaData.MimeType()
	if node.Data.Binary != nil {
		return node.Data.Binary, mime, nil
	}
	body, err := h.loadData(node.Data.MetaData, query, cert)
	if err != nil {
		return nil, "", err
	}
	return body, mime, nil
}

func (h *Handler) loadData(ft FileType, query *string, cert *x509.Certificate) ([]byte, *Error) {
	switch v := ft.(type) {
	case *NormalFile:
		return readFileOrTemporaryFailure(v.Path.Original)
	case *LinkObject:
		return readFileOrTemporaryFailure(v.FilePath)
	case *DynamicObject:
		if v.Cache {
			body, err := readCached(v, h.cacheDir, h.executor)
			if err != nil {
				if gerr, ok := err.(*Error); ok {
					return nil, gerr
				}
				return nil, newError(StatusTemporaryFailure, "Resource could not be retrieved: %v", err)
			}
			return body, nil
		}
		body, err := h.executor.Run(v, query, cert)
		if err != nil {
			if gerr, ok := err.(*Error); ok {
				return nil, gerr
			}
			return nil, newError(StatusTemporaryFailure, "Resource could not be retrieved: %v", err)
		}
		return body, nil
	}
	return nil, newError(StatusTemporaryFailure, "Resource could not be retrieved")
}

func readFileOrTemporaryFailure(path string) ([]byte, *Error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(StatusTemporaryFailure, "Resource could not be retrieved: %v", err)
	}
	return body, nil
}

// buildMeta applies the default-language and default-charset settings
// to a text mimetype; non-text mimetypes pass through unchanged.
func (h *Handler) buildMeta(mime string) string {
	if !strings.HasPrefix(mime, "text") {
		return mime
	}

	settings := h.tree.Settings
	meta := mime
	if mime == "text/gemini" && settings.DefaultLang != nil {
		meta = "text/gemini; lang=" + *settings.DefaultLang
	}
	if settings.DefaultCharset != "" {
		meta += "; charset=" + settings.DefaultCharset
	}
	return meta
}

// errorResponse renders err as a client-visible Response. A Meta error
// (an input prompt, a certificate requirement, a program's own
// status-code forward) always carries its message; an ordinary error's
// message is only sent when ServeErrors is set, falling back to the
// static ErrorProfile body when configured, else a bare status line.
func (h *Handler) errorResponse(err *Error) *Response {
	settings := h.tree.Settings
	if settings.ServeErrors || err.Meta {
		return &Response{Status: err.Status, Meta: err.Message}
	}
	if settings.ErrorProfile != nil {
		// The wire protocol only allows a body on a Success response, so
		// the fallback page is served as one: the original failure
		// status would otherwise have to be silently discarded to carry
		// a body at all.
		if body, readErr := os.ReadFile(*settings.ErrorProfile); readErr == nil {
			return &Response{Status: StatusSuccess, Meta: h.buildMeta("text/gemini"), Body: body}
		}
	}
	return &Response{Status: err.Status}
}
