package server

import (
	"context"

	"github.com/nebulacloud/console/internal/dashboard/query"
	apiclient "github.com/nebulacloud/console/pkg/api/client"
)

// load runs one cached, owner-scoped read. Failures come back as an empty slice.
func load[T any](s *Server, ctx context.Context, p page, collection string, fetch func(context.Context, string) ([]T, error)) []T {
	key := query.Key{Collection: collection, OwnerID: p.owner()}
	res := query.Fetch(ctx, p.view, key, func(ctx context.Context) ([]T, error) {
		ctx, cancel := s.callCtx(ctx)
		defer cancel()
		return fetch(ctx, p.sess.Token)
	})
	return res.Data
}

func (s *Server) key(p page, collection string) query.Key {
	return query.Key{Collection: collection, OwnerID: p.owner()}
}

func (s *Server) vpsList(ctx context.Context, p page) []apiclient.VPS {
	return load(s, ctx, p, query.CollectionVPS, s.api.ListVPS)
}

func (s *Server) databaseList(ctx context.Context, p page) []apiclient.Database {
	return load(s, ctx, p, query.CollectionDatabases, s.api.ListDatabases)
}

func (s *Server) bucketList(ctx context.Context, p page) []apiclient.Bucket {
	return load(s, ctx, p, query.CollectionBuckets, s.api.ListBuckets)
}

func (s *Server) bucketFiles(ctx context.Context, p page, bucketID string) []apiclient.StoredFile {
	return load(s, ctx, p, bucketFilesCollection(bucketID), func(ctx context.Context, token string) ([]apiclient.StoredFile, error) {
		return s.api.BucketFiles(ctx, token, bucketID)
	})
}

func bucketFilesCollection(bucketID string) string {
	return query.CollectionBuckets + "/" + bucketID + "/files"
}

func (s *Server) groupList(ctx context.Context, p page) []apiclient.SecurityGroup {
	return load(s, ctx, p, query.CollectionSecurityGroups, s.api.ListSecurityGroups)
}

func (s *Server) ruleList(ctx context.Context, p page) []apiclient.SecurityRule {
	return load(s, ctx, p, query.CollectionSecurityRules, s.api.ListSecurityRules)
}

func (s *Server) creditList(ctx context.Context, p page) []apiclient.CreditEntry {
	return load(s, ctx, p, query.CollectionCredits, s.api.ListCredits)
}

func (s *Server) notificationList(ctx context.Context, p page) []apiclient.Notification {
	return load(s, ctx, p, query.CollectionNotifications, s.api.ListNotifications)
}

func (s *Server) pipelineList(ctx context.Context, p page) []apiclient.Pipeline {
	return load(s, ctx, p, query.CollectionPipelines, s.api.ListPipelines)
}

func (s *Server) pipelineBuilds(ctx context.Context, p page, pipelineID string) []apiclient.Build {
	return load(s, ctx, p, query.CollectionPipelines+"/"+pipelineID+"/builds", func(ctx context.Context, token string) ([]apiclient.Build, error) {
		return s.api.PipelineBuilds(ctx, token, pipelineID)
	})
}

func (s *Server) teamMembers(ctx context.Context, p page) []apiclient.TeamMember {
	return load(s, ctx, p, query.CollectionTeamMembers, s.api.TeamMembers)
}

func (s *Server) apiKeys(ctx context.Context, p page) []apiclient.APIKey {
	return load(s, ctx, p, query.CollectionAPIKeys, s.api.APIKeys)
}

func (s *Server) profile(ctx context.Context, p page) (apiclient.Profile, bool) {
	rows := load(s, ctx, p, query.CollectionProfile, func(ctx context.Context, token string) ([]apiclient.Profile, error) {
		prof, err := s.api.Profile(ctx, token)
		if err != nil {
			return nil, err
		}
		return []apiclient.Profile{prof}, nil
	})
	if len(rows) == 0 {
		return apiclient.Profile{}, false
	}
	return rows[0], true
}

func (s *Server) catalog(ctx context.Context, p page) apiclient.Catalog {
	rows := load(s, ctx, p, "catalog", func(ctx context.Context, _ string) ([]apiclient.Catalog, error) {
		snap, err := s.api.Catalog(ctx)
		if err != nil {
			return nil, err
		}
		return []apiclient.Catalog{snap}, nil
	})
	if len(rows) == 0 {
		return apiclient.Catalog{}
	}
	return rows[0]
}
