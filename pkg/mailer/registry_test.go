package mailer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_FindByName(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(
		Template{Name: "welcome", Markup: "<mjml/>"},
		Template{Name: "user-login", Markup: userLoginMarkup},
	)
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())

	tmpl, err := r.FindByName("user-login")
	require.NoError(t, err)
	require.Equal(t, userLoginMarkup, tmpl.Markup)

	_, err = r.FindByName("not-found")
	require.ErrorIs(t, err, ErrTemplateNotFound)
	require.Contains(t, err.Error(), "not-found")
}

func TestRegistry_Templates_Sorted(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(
		Template{Name: "c"},
		Template{Name: "a"},
		Template{Name: "b"},
	)
	require.NoError(t, err)

	list := r.Templates()
	require.Equal(t, []string{"a", "b", "c"}, []string{list[0].Name, list[1].Name, list[2].Name})

	list[0].Name = "mutated"
	require.Equal(t, "a", r.Templates()[0].Name)
}

func TestNewRegistry_Rejects(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(Template{Name: "a"}, Template{Name: "a"})
	require.ErrorIs(t, err, ErrDuplicateTemplate)

	_, err = NewRegistry(Template{Name: ""})
	require.ErrorIs(t, err, ErrDuplicateTemplate)
}

func TestRegistry_Empty(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry()
	require.NoError(t, err)
	require.Zero(t, r.Len())
	require.Empty(t, r.Templates())

	_, err = r.FindByName("anything")
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(Template{Name: "user-login", Markup: userLoginMarkup})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tmpl, err := r.FindByName("user-login")
			if err != nil || tmpl.Name != "user-login" {
				t.Errorf("lookup failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
