package pages

import (
	"context"
	"encoding/json"

	"git.home.luguber.info/inful/pagebuilder/internal/content"
	"git.home.luguber.info/inful/pagebuilder/internal/contentful"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/queries"
)

// Navigation returns the first navigation entry.
func (r *Resolver) Navigation(ctx context.Context, mode Mode) (*content.Navigation, error) {
	var data struct {
		NavigationCollection *content.Collection[*content.Navigation] `json:"navigationCollection"`
	}
	if err := r.chrome(ctx, queries.GetNavigation, mode, &data); err != nil {
		return nil, err
	}
	if data.NavigationCollection == nil || len(data.NavigationCollection.Items) == 0 || data.NavigationCollection.Items[0] == nil {
		return nil, ErrNotFound
	}
	return data.NavigationCollection.Items[0], nil
}

// Footer returns the first footer entry.
func (r *Resolver) Footer(ctx context.Context, mode Mode) (*content.Footer, error) {
	var data struct {
		FooterCollection *content.Collection[*content.Footer] `json:"footerCollection"`
	}
	if err := r.chrome(ctx, queries.GetFooter, mode, &data); err != nil {
		return nil, err
	}
	if data.FooterCollection == nil || len(data.FooterCollection.Items) == 0 || data.FooterCollection.Items[0] == nil {
		return nil, ErrNotFound
	}
	return data.FooterCollection.Items[0], nil
}

func (r *Resolver) chrome(ctx context.Context, q queries.Query, mode Mode, out any) error {
	raw, err := r.exec.Execute(ctx, contentful.Request{
		Query:      q,
		Preview:    mode.Preview,
		Revalidate: mode.Revalidate,
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDecode, "decode "+q.Name+" response").Build()
	}
	return nil
}
