package resources

import (
	"context"

	runeq "github.com/runelabs/runeq-go"
	"github.com/runelabs/runeq-go/ident"
	"github.com/runelabs/runeq-go/internal/graph"
)

// GetOrg fetches one organization by id.
func GetOrg(ctx context.Context, c *runeq.Client, orgID string) (*Entity, error) {
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}
	id, err := ident.Parse(orgID, TypeOrg.Name)
	if err != nil {
		return nil, err
	}

	const statement = `
		query getOrg($org_id: ID) {
			org(orgId: $org_id) {
				id
				created_at: created
				name: displayName
			}
		}
	`
	result, err := gc.Execute(ctx, statement, map[string]any{"org_id": id.Principal()})
	if err != nil {
		return nil, err
	}
	attrs := graph.Child(result, "org")
	if attrs == nil {
		return nil, runeq.ErrNotFound
	}
	return NewEntity(TypeOrg, attrs)
}

// GetOrgs fetches every organization the current user is a member of,
// walking the user's membership list.
func GetOrgs(ctx context.Context, c *runeq.Client) (*Set, error) {
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}

	const statement = `
		query getOrgMemberships($cursor: Cursor) {
			user {
				membershipList(cursor: $cursor) {
					pageInfo {
						endCursor
					}
					memberships {
						org {
							id
							created_at: created
							name: displayName
						}
					}
				}
			}
		}
	`
	orgs := NewSet(TypeOrg)
	seq := graph.Paginate(ctx, func(ctx context.Context, cursor string) ([]map[string]any, string, error) {
		result, err := gc.Execute(ctx, statement, cursorVars(cursor))
		if err != nil {
			return nil, "", err
		}
		list := graph.Child(result, "user", "membershipList")
		var records []map[string]any
		for _, membership := range graph.Items(list, "memberships") {
			if org, ok := membership["org"].(map[string]any); ok {
				records = append(records, org)
			}
		}
		return records, graph.EndCursor(list), nil
	})

	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		org, err := NewEntity(TypeOrg, rec)
		if err != nil {
			return nil, err
		}
		if err := orgs.Add(org); err != nil {
			return nil, err
		}
	}
	orgs.SetComplete(true)
	return orgs, nil
}
