package ui

import (
	"context"
	stderrors "errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/models"
	"github.com/dpshade/prompt-vault/internal/service"
)

// Run starts the interactive browser and blocks until the user quits or ctx
// is cancelled. The terminal size at exit is stored as window_geometry.
func Run(ctx context.Context, svc *service.Service) error {
	theme, err := svc.GetSetting(ctx, models.SettingTheme)
	if err != nil {
		log.WithError(err).Warn("could not read theme, using System")
		theme = models.ThemeSystem
	}

	model, err := NewModel(ctx, svc, theme)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "Failed to start the interface")
	}

	p := tea.NewProgram(*model, tea.WithAltScreen(), tea.WithContext(ctx))

	stop, err := watchVault(ctx, svc.Path(), func() { p.Send(vaultChangedMsg{}) })
	if err != nil {
		log.WithError(err).Warn("vault watcher unavailable, external changes need a restart")
	} else {
		defer stop()
	}

	final, err := p.Run()
	if err != nil {
		if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeInternalError, "Interface stopped unexpectedly")
	}

	if m, ok := final.(Model); ok && m.width > 0 && m.height > 0 {
		geometry := fmt.Sprintf("%dx%d+0+0", m.width, m.height)
		if err := svc.SetSetting(context.WithoutCancel(ctx), models.SettingWindowGeometry, geometry); err != nil {
			log.WithError(err).Warn("could not save window geometry")
		}
	}
	return nil
}
