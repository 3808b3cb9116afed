package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/models"
)

type accountRepo struct{ v *view }

func (r *accountRepo) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	var out models.Account
	err := r.v.run("accounts.create", func(st *state) error {
		for _, existing := range st.accounts {
			if existing.Email == a.Email {
				return unique("insert account", "accounts_email_key")
			}
			if existing.Username == a.Username {
				return unique("insert account", "accounts_username_key")
			}
		}
		out = *a
		out.CreatedAt = r.v.now(st)
		out.UpdatedAt = out.CreatedAt
		out.LastLoginAt = nil
		st.accounts[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *accountRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	var out *models.Account
	err := r.v.run("accounts.get", func(st *state) error {
		if a, ok := st.accounts[id]; ok {
			out = &a
		}
		return nil
	})
	return out, err
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	var out *models.Account
	err := r.v.run("accounts.get_by_email", func(st *state) error {
		for _, a := range st.accounts {
			if a.Email == email {
				out = &a
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *accountRepo) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	var exists bool
	err := r.v.run("accounts.exists", func(st *state) error {
		for _, a := range st.accounts {
			if a.Email == email || a.Username == username {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r *accountRepo) TouchLastLogin(_ context.Context, id uuid.UUID) error {
	return r.v.run("accounts.touch_last_login", func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return nil
		}
		now := r.v.now(st)
		a.LastLoginAt = &now
		a.UpdatedAt = now
		st.accounts[id] = a
		return nil
	})
}

type realmRepo struct{ v *view }

func (r *realmRepo) Create(_ context.Context, realm *models.Realm) (*models.Realm, error) {
	var out models.Realm
	err := r.v.run("realms.create", func(st *state) error {
		for _, existing := range st.realms {
			if existing.Name == realm.Name {
				return unique("insert realm", "realms_name_key")
			}
		}
		out = *realm
		out.CreatedAt = r.v.now(st)
		out.UpdatedAt = out.CreatedAt
		st.realms[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *realmRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Realm, error) {
	var out *models.Realm
	err := r.v.run("realms.get", func(st *state) error {
		if realm, ok := st.realms[id]; ok {
			out = &realm
		}
		return nil
	})
	return out, err
}

func (r *realmRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	var exists bool
	err := r.v.run("realms.exists", func(st *state) error {
		for _, realm := range st.realms {
			if realm.Name == name {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r *realmRepo) ListForAccount(_ context.Context, accountID uuid.UUID) ([]models.Realm, error) {
	realms := make([]models.Realm, 0)
	err := r.v.run("realms.list_for_account", func(st *state) error {
		seen := make(map[uuid.UUID]bool)
		for _, g := range st.grants {
			if g.AccountID != accountID || seen[g.RealmID] {
				continue
			}
			seen[g.RealmID] = true
			if realm, ok := st.realms[g.RealmID]; ok && realm.IsActive {
				realms = append(realms, realm)
			}
		}
		slices.SortFunc(realms, func(a, b models.Realm) int {
			return strings.Compare(a.Name, b.Name)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return realms, nil
}

type roleRepo struct{ v *view }

func (r *roleRepo) Create(_ context.Context, role *models.Role) (*models.Role, error) {
	var out models.Role
	err := r.v.run("roles.create", func(st *state) error {
		if _, ok := st.realms[role.RealmID]; !ok {
			return foreignKey("insert role", "fk_roles_realm")
		}
		for _, existing := range st.roles {
			if existing.RealmID == role.RealmID && existing.Name == role.Name {
				return unique("insert role", "idx_roles_realm_name")
			}
		}
		out = *role
		out.CreatedAt = r.v.now(st)
		st.roles[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type permissionRepo struct{ v *view }

func (r *permissionRepo) Create(_ context.Context, p *models.Permission) error {
	return r.v.run("permissions.create", func(st *state) error {
		if _, ok := st.roles[p.RoleID]; !ok {
			return foreignKey("insert permission", "fk_permissions_role")
		}
		if !slices.Contains(models.ResourceTypes, p.ResourceType) {
			return check("insert permission", "permissions_resource_type_check")
		}
		for _, existing := range st.permissions {
			if existing.RealmID == p.RealmID && existing.RoleID == p.RoleID && existing.ResourceType == p.ResourceType {
				return unique("insert permission", "idx_permissions_realm_role_resource")
			}
		}
		stored := *p
		stored.Actions = cloneStrings(p.Actions)
		stored.CreatedAt = r.v.now(st)
		st.permissions[stored.ID] = stored
		return nil
	})
}

type grantRepo struct{ v *view }

func (r *grantRepo) Create(_ context.Context, g *models.Grant) error {
	return r.v.run("grants.create", func(st *state) error {
		if _, ok := st.accounts[g.AccountID]; !ok {
			return foreignKey("insert grant", "fk_account_realm_roles_account")
		}
		if _, ok := st.realms[g.RealmID]; !ok {
			return foreignKey("insert grant", "fk_account_realm_roles_realm")
		}
		if _, ok := st.roles[g.RoleID]; !ok {
			return foreignKey("insert grant", "fk_account_realm_roles_role")
		}
		for _, existing := range st.grants {
			if existing.AccountID == g.AccountID && existing.RealmID == g.RealmID && existing.RoleID == g.RoleID {
				return nil
			}
		}
		stored := *g
		stored.GrantedAt = r.v.now(st)
		st.grants = append(st.grants, stored)
		return nil
	})
}

func (r *grantRepo) Exists(_ context.Context, accountID, realmID uuid.UUID) (bool, error) {
	var exists bool
	err := r.v.run("grants.exists", func(st *state) error {
		for _, g := range st.grants {
			if g.AccountID == accountID && g.RealmID == realmID {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r *grantRepo) FirstRealm(_ context.Context, accountID uuid.UUID) (*uuid.UUID, error) {
	var out *uuid.UUID
	err := r.v.run("grants.first_realm", func(st *state) error {
		var first *models.Grant
		for i := range st.grants {
			g := &st.grants[i]
			if g.AccountID != accountID {
				continue
			}
			if first == nil || g.GrantedAt.Before(first.GrantedAt) ||
				(g.GrantedAt.Equal(first.GrantedAt) && g.RealmID.String() < first.RealmID.String()) {
				first = g
			}
		}
		if first != nil {
			realmID := first.RealmID
			out = &realmID
		}
		return nil
	})
	return out, err
}

type bridgeRepo struct{ v *view }

func (r *bridgeRepo) Create(_ context.Context, b *models.ChannelBridge) (*models.ChannelBridge, error) {
	var out models.ChannelBridge
	err := r.v.run("bridges.create", func(st *state) error {
		if err := b.Validate(); err != nil {
			return check("insert bridge", "channel_bridge_bridge_type_check")
		}
		if b.ProviderType != models.ProviderLine {
			return check("insert bridge", "channel_bridge_third_provider_type_check")
		}
		if _, ok := st.realms[b.RealmID]; !ok {
			return foreignKey("insert bridge", "fk_channel_bridge_realm")
		}
		for _, existing := range st.bridges {
			if existing.ProviderType == b.ProviderType && existing.ThirdID == b.ThirdID {
				return unique("insert bridge", "idx_channel_bridge_third_login")
			}
		}
		out = cloneBridge(*b)
		out.CreatedAt = r.v.now(st)
		out.UpdatedAt = out.CreatedAt
		st.bridges[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	out = cloneBridge(out)
	return &out, nil
}

func (r *bridgeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.ChannelBridge, error) {
	var out *models.ChannelBridge
	err := r.v.run("bridges.get", func(st *state) error {
		if b, ok := st.bridges[id]; ok {
			c := cloneBridge(b)
			out = &c
		}
		return nil
	})
	return out, err
}

func cloneBridge(b models.ChannelBridge) models.ChannelBridge {
	if b.OAuth != nil {
		o := *b.OAuth
		o.Scopes = cloneStrings(o.Scopes)
		b.OAuth = &o
	}
	if b.API != nil {
		a := *b.API
		b.API = &a
	}
	return b
}

type botRepo struct{ v *view }

// checkBot applies the bots table constraints other than name uniqueness.
func checkBot(op string, st *state, b *models.Bot) error {
	if !b.HasBridge() {
		return check(op, "bots_bridge_check")
	}
	if _, ok := st.realms[b.RealmID]; !ok {
		return foreignKey(op, "fk_bots_realm")
	}
	if b.APIBridgeID != nil {
		if _, ok := st.bridges[*b.APIBridgeID]; !ok {
			return foreignKey(op, "fk_bots_api_channel_bridge")
		}
	}
	if b.OAuthBridgeID != nil {
		if _, ok := st.bridges[*b.OAuthBridgeID]; !ok {
			return foreignKey(op, "fk_bots_oauth_channel_bridge")
		}
	}
	return nil
}

func cloneBot(b models.Bot) models.Bot {
	b.Capabilities = cloneStrings(b.Capabilities)
	if b.Capabilities == nil {
		b.Capabilities = []string{}
	}
	return b
}

func (r *botRepo) Create(_ context.Context, b *models.Bot) (*models.Bot, error) {
	var out models.Bot
	err := r.v.run("bots.create", func(st *state) error {
		if err := checkBot("insert bot", st, b); err != nil {
			return err
		}
		for _, existing := range st.bots {
			if existing.RealmID == b.RealmID && existing.Name == b.Name {
				return unique("insert bot", "idx_bots_realm_name")
			}
		}
		out = cloneBot(*b)
		out.CreatedAt = r.v.now(st)
		out.UpdatedAt = out.CreatedAt
		st.bots[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	out = cloneBot(out)
	return &out, nil
}

func (r *botRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Bot, error) {
	var out *models.Bot
	err := r.v.run("bots.get", func(st *state) error {
		if b, ok := st.bots[id]; ok {
			c := cloneBot(b)
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *botRepo) ExistsByName(_ context.Context, realmID uuid.UUID, name string, exclude *uuid.UUID) (bool, error) {
	var exists bool
	err := r.v.run("bots.exists", func(st *state) error {
		for _, b := range st.bots {
			if b.RealmID != realmID || b.Name != name {
				continue
			}
			if exclude != nil && b.ID == *exclude {
				continue
			}
			exists = true
			return nil
		}
		return nil
	})
	return exists, err
}

func (r *botRepo) ListByRealm(_ context.Context, realmID uuid.UUID) ([]models.Bot, error) {
	bots := make([]models.Bot, 0)
	err := r.v.run("bots.list_by_realm", func(st *state) error {
		for _, b := range st.bots {
			if b.RealmID == realmID {
				bots = append(bots, cloneBot(b))
			}
		}
		slices.SortFunc(bots, func(a, b models.Bot) int {
			return strings.Compare(a.Name, b.Name)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bots, nil
}

func (r *botRepo) Update(_ context.Context, b *models.Bot) (*models.Bot, error) {
	var out *models.Bot
	err := r.v.run("bots.update", func(st *state) error {
		existing, ok := st.bots[b.ID]
		if !ok || existing.RealmID != b.RealmID {
			return nil
		}
		if err := checkBot("update bot", st, b); err != nil {
			return err
		}
		for _, other := range st.bots {
			if other.ID != b.ID && other.RealmID == b.RealmID && other.Name == b.Name {
				return unique("update bot", "idx_bots_realm_name")
			}
		}
		updated := cloneBot(*b)
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = r.v.now(st)
		st.bots[b.ID] = updated
		c := cloneBot(updated)
		out = &c
		return nil
	})
	return out, err
}

func (r *botRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.v.run("bots.delete", func(st *state) error {
		delete(st.bots, id)
		return nil
	})
}
