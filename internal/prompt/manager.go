package prompt

import (
	"fmt"

	"github.com/example42/saigen/internal/logutil"
	"github.com/example42/saigen/internal/saidata"
)

// Manager owns the set of named templates available to the orchestrator. A
// fresh Manager is pre-loaded with the three built-in templates; callers
// may register additional ones (e.g. for a future saidata schema version)
// with Register.
type Manager struct {
	logger    logutil.LoggerInterface
	templates map[string]*Template
}

// NewManager constructs a Manager pre-loaded with the built-in templates.
func NewManager(logger logutil.LoggerInterface) *Manager {
	m := &Manager{
		logger:    logger,
		templates: make(map[string]*Template),
	}
	m.Register(Generation())
	m.Register(Update())
	m.Register(Retry())
	return m
}

// Register adds or replaces a named template.
func (m *Manager) Register(t *Template) {
	m.templates[t.Name] = t
}

// Render looks up a template by name and renders it against ctx.
func (m *Manager) Render(templateName string, ctx *saidata.GenerationContext, opts RenderOptions) (string, error) {
	t, ok := m.templates[templateName]
	if !ok {
		return "", fmt.Errorf("prompt: unknown template %q", templateName)
	}
	rendered, err := t.Render(ctx, opts)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("prompt render failed for template %q: %v", templateName, err)
		}
		return "", err
	}
	return rendered, nil
}

// ListTemplates returns the registered template names.
func (m *Manager) ListTemplates() []string {
	names := make([]string, 0, len(m.templates))
	for name := range m.templates {
		names = append(names, name)
	}
	return names
}
