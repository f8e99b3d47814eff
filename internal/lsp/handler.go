package lsp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const serverName = "constfold"

// Handler implements the LSP server handlers for IR files
type Handler struct {
	mu        sync.RWMutex
	content   map[string]string
	documents map[string]*document
	log       commonlog.Logger
	version   string
}

// NewHandler creates and returns a new Handler instance
func NewHandler(version string) *Handler {
	return &Handler{
		content:   make(map[string]string),
		documents: make(map[string]*document),
		log:       commonlog.GetLogger("constfold.lsp"),
		version:   version,
	}
}

// ProtocolHandler wires the handler methods into a glsp protocol handler
func (h *Handler) ProtocolHandler() protocol.Handler {
	return protocol.Handler{
		Initialize:                     h.Initialize,
		Initialized:                    h.Initialized,
		Shutdown:                       h.Shutdown,
		SetTrace:                       h.SetTrace,
		TextDocumentDidOpen:            h.TextDocumentDidOpen,
		TextDocumentDidChange:          h.TextDocumentDidChange,
		TextDocumentDidClose:           h.TextDocumentDidClose,
		TextDocumentHover:              h.TextDocumentHover,
		TextDocumentSemanticTokensFull: h.TextDocumentSemanticTokensFull,
	}
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	h.log.Info("initialize")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindIncremental),
			},
			HoverProvider: true,
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &h.version,
		},
	}, nil
}

// Initialized is called after the client receives the server's capabilities
func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	h.log.Info("initialized")
	return nil
}

// Shutdown handles the LSP shutdown request
func (h *Handler) Shutdown(ctx *glsp.Context) error {
	h.log.Info("shutdown")
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (h *Handler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// TextDocumentDidOpen stores the editor's text and publishes diagnostics for it
func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	h.log.Infof("opened %s", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	h.publish(ctx, params.TextDocument.URI, h.update(path, params.TextDocument.Text))
	return nil
}

// TextDocumentDidChange applies full or ranged edits and republishes diagnostics
func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	h.log.Debugf("changed %s", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	h.mu.RLock()
	text, ok := h.content[path]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("change for unopened document %s", params.TextDocument.URI)
	}

	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text = c.Text
				continue
			}
			text = applyEdit(text, *c.Range, c.Text)
		default:
			return fmt.Errorf("unsupported content change %T", change)
		}
	}

	h.publish(ctx, params.TextDocument.URI, h.update(path, text))
	return nil
}

// TextDocumentDidClose forgets the document and clears its diagnostics
func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	h.log.Infof("closed %s", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	h.mu.Lock()
	delete(h.content, path)
	delete(h.documents, path)
	h.mu.Unlock()

	h.publish(ctx, params.TextDocument.URI, []protocol.Diagnostic{})
	return nil
}

// TextDocumentHover describes the value under the cursor
func (h *Handler) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, err := h.getOrLoad(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	line, column := int(params.Position.Line)+1, int(params.Position.Character)+1
	tok, ok := doc.tokenAt(line, column)
	if !ok {
		return nil, nil
	}

	text, ok := doc.describe(tok)
	if !ok {
		return nil, nil
	}

	start := protocol.Position{Line: uint32(tok.Pos.Line - 1), Character: uint32(tok.Pos.Column - 1)}
	end := protocol.Position{Line: start.Line, Character: start.Character + uint32(len([]rune(tok.Value)))}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: text},
		Range:    &protocol.Range{Start: start, End: end},
	}, nil
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document
func (h *Handler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	doc, err := h.getOrLoad(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	var data []uint32
	var prevLine, prevStart uint32

	// Encode tokens into LSP wire format (using delta-line, delta-start compression)
	for _, token := range collectSemanticTokens(doc.tokens) {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}

		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{Data: data}, nil
}

// update stores text for path and analyzes it
func (h *Handler) update(path, text string) []protocol.Diagnostic {
	doc := analyze(path, text)

	h.mu.Lock()
	h.content[path] = text
	h.documents[path] = doc
	h.mu.Unlock()

	return doc.diagnostics
}

// getOrLoad returns the analyzed document, reading it from disk if the
// editor never opened it
func (h *Handler) getOrLoad(rawURI protocol.DocumentUri) (*document, error) {
	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	doc, ok := h.documents[path]
	h.mu.RUnlock()
	if ok {
		return doc, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	h.update(path, string(content))

	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.documents[path], nil
}

func (h *Handler) publish(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}

	if diagnosticsJSON, err := json.Marshal(diagnostics); err == nil {
		h.log.Debugf("sending diagnostics: %s", diagnosticsJSON)
	}

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// applyEdit replaces the text covered by r. Characters are counted in runes.
func applyEdit(text string, r protocol.Range, replacement string) string {
	start := offsetOf(text, r.Start)
	end := offsetOf(text, r.End)
	if end < start {
		start, end = end, start
	}
	return text[:start] + replacement + text[end:]
}

func offsetOf(text string, pos protocol.Position) int {
	offset := 0
	for line := uint32(0); line < pos.Line; line++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return len(text)
		}
		offset += next + 1
	}

	char := uint32(0)
	for i, r := range text[offset:] {
		if char == pos.Character || r == '\n' {
			return offset + i
		}
		char++
	}
	return len(text)
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...) -> C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
