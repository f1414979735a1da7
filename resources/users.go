package resources

import (
	"context"

	runeq "github.com/runelabs/runeq-go"
	"github.com/runelabs/runeq-go/internal/graph"
)

// GetCurrentUser fetches the user behind the configured credentials,
// including the active org via the default membership relation.
func GetCurrentUser(ctx context.Context, c *runeq.Client) (*Entity, error) {
	gc, err := graphFor(c)
	if err != nil {
		return nil, err
	}

	const statement = `
		query getUser {
			user {
				id
				created_at: created
				display_name: displayName
				defaultMembership {
					org {
						id
						display_name: displayName
					}
				}
				email
			}
		}
	`
	result, err := gc.Execute(ctx, statement, nil)
	if err != nil {
		return nil, err
	}
	attrs := graph.Child(result, "user")
	if attrs == nil {
		return nil, runeq.ErrNotFound
	}
	return NewEntity(TypeUser, attrs)
}

// ActiveOrg returns the org entity of a user's default membership.
func ActiveOrg(user *Entity) (*Entity, error) {
	v, err := user.Get("defaultMembership")
	if err != nil {
		return nil, err
	}
	membership, ok := v.(*Entity)
	if !ok {
		return nil, runeq.Usagef("user entity has no default membership attached")
	}
	org, err := membership.Get("org")
	if err != nil {
		return nil, err
	}
	orgEntity, ok := org.(*Entity)
	if !ok {
		return nil, runeq.Usagef("default membership has no org attached")
	}
	return orgEntity, nil
}
