package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/nebulacloud/console/internal/aggregate"
	"github.com/nebulacloud/console/internal/dashboard/query"
	apiclient "github.com/nebulacloud/console/pkg/api/client"
)

const (
	vpsPath       = "/dashboard/vps"
	databasesPath = "/dashboard/databases"
	storagePath   = "/dashboard/storage"
)

func (s *Server) handleVPS(w http.ResponseWriter, r *http.Request, p page, rest []string) {
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		vps := s.vpsList(r.Context(), p)
		data := s.baseData(r, p, "Virtual Servers", "vps")
		data["Instances"] = vps
		data["Running"] = aggregate.RunningCount(vps, aggregate.VPSStatus)
		data["Catalog"] = s.catalog(r.Context(), p)
		s.render(w, r, "vps", data)
	case len(rest) == 1 && rest[0] == "create":
		if !s.parseForm(w, r) {
			return
		}
		name := strings.TrimSpace(r.PostFormValue("name"))
		if name == "" {
			redirectWithFlash(w, r, vpsPath, "Error: Instance name is required")
			return
		}
		storage, _ := strconv.Atoi(r.PostFormValue("storage_gb"))
		input := apiclient.CreateVPSInput{
			Name:         name,
			InstanceType: r.PostFormValue("instance_type"),
			Region:       r.PostFormValue("region"),
			Image:        r.PostFormValue("image"),
			StorageGB:    storage,
		}
		s.mutate(w, r, query.Guard{Entity: "vps", ID: p.owner(), Op: "create", Payload: fmt.Sprintf("%+v", input)}, vpsPath, "VPS instance created",
			func(ctx context.Context) error {
				_, err := s.api.CreateVPS(ctx, p.sess.Token, input)
				return err
			}, s.key(p, query.CollectionVPS))
	case len(rest) == 2 && rest[1] == "status":
		if !s.parseForm(w, r) {
			return
		}
		id, status := rest[0], r.PostFormValue("status")
		s.mutate(w, r, query.Guard{Entity: "vps", ID: id, Op: "status", Payload: status}, vpsPath, "VPS status updated",
			func(ctx context.Context) error {
				_, err := s.api.SetVPSStatus(ctx, p.sess.Token, id, status)
				return err
			}, s.key(p, query.CollectionVPS))
	case len(rest) == 2 && rest[1] == "delete":
		if !s.parseForm(w, r) {
			return
		}
		id := rest[0]
		s.mutate(w, r, query.Guard{Entity: "vps", ID: id, Op: "delete"}, vpsPath, "VPS instance deleted",
			func(ctx context.Context) error {
				return s.api.DeleteVPS(ctx, p.sess.Token, id)
			}, s.key(p, query.CollectionVPS))
	default:
		s.notFound(w, r)
	}
}

func (s *Server) handleDatabases(w http.ResponseWriter, r *http.Request, p page, rest []string) {
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		dbs := s.databaseList(r.Context(), p)
		data := s.baseData(r, p, "Managed Databases", "databases")
		data["Databases"] = dbs
		data["Running"] = aggregate.RunningCount(dbs, aggregate.DatabaseStatus)
		data["MonthlyCost"] = aggregate.MonthlySpend(nil, dbs, nil)
		data["Catalog"] = s.catalog(r.Context(), p)
		s.render(w, r, "databases", data)
	case len(rest) == 1 && rest[0] == "create":
		if !s.parseForm(w, r) {
			return
		}
		name := strings.TrimSpace(r.PostFormValue("name"))
		if name == "" {
			redirectWithFlash(w, r, databasesPath, "Error: Database name is required")
			return
		}
		storage, _ := strconv.Atoi(r.PostFormValue("storage_gb"))
		input := apiclient.CreateDatabaseInput{
			Name:         name,
			DatabaseType: r.PostFormValue("database_type"),
			Version:      r.PostFormValue("version"),
			InstanceSize: r.PostFormValue("instance_size"),
			StorageGB:    storage,
			Region:       r.PostFormValue("region"),
		}
		s.mutate(w, r, query.Guard{Entity: "database", ID: p.owner(), Op: "create", Payload: fmt.Sprintf("%+v", input)}, databasesPath, "Database created",
			func(ctx context.Context) error {
				_, err := s.api.CreateDatabase(ctx, p.sess.Token, input)
				return err
			}, s.key(p, query.CollectionDatabases))
	case len(rest) == 2 && rest[1] == "status":
		if !s.parseForm(w, r) {
			return
		}
		id, status := rest[0], r.PostFormValue("status")
		s.mutate(w, r, query.Guard{Entity: "database", ID: id, Op: "status", Payload: status}, databasesPath, "Database status updated",
			func(ctx context.Context) error {
				_, err := s.api.SetDatabaseStatus(ctx, p.sess.Token, id, status)
				return err
			}, s.key(p, query.CollectionDatabases))
	case len(rest) == 2 && rest[1] == "delete":
		if !s.parseForm(w, r) {
			return
		}
		id := rest[0]
		s.mutate(w, r, query.Guard{Entity: "database", ID: id, Op: "delete"}, databasesPath, "Database deleted",
			func(ctx context.Context) error {
				return s.api.DeleteDatabase(ctx, p.sess.Token, id)
			}, s.key(p, query.CollectionDatabases))
	default:
		s.notFound(w, r)
	}
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request, p page, rest []string) {
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		buckets := s.bucketList(r.Context(), p)
		data := s.baseData(r, p, "File Storage", "storage")
		data["Buckets"] = buckets
		data["Totals"] = aggregate.BucketTotals(buckets)
		data["Catalog"] = s.catalog(r.Context(), p)
		s.render(w, r, "storage", data)
	case len(rest) == 1 && rest[0] == "create":
		if !s.parseForm(w, r) {
			return
		}
		name := strings.TrimSpace(r.PostFormValue("name"))
		if name == "" {
			redirectWithFlash(w, r, storagePath, "Error: Bucket name is required")
			return
		}
		input := apiclient.CreateBucketInput{
			Name:         name,
			Region:       r.PostFormValue("region"),
			PublicAccess: r.PostFormValue("public_access") == "on",
		}
		s.mutate(w, r, query.Guard{Entity: "bucket", ID: p.owner(), Op: "create", Payload: fmt.Sprintf("%+v", input)}, storagePath, "Bucket created",
			func(ctx context.Context) error {
				_, err := s.api.CreateBucket(ctx, p.sess.Token, input)
				return err
			}, s.key(p, query.CollectionBuckets))
	case len(rest) == 1:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := rest[0]
		var bucket *apiclient.Bucket
		for _, b := range s.bucketList(r.Context(), p) {
			if b.ID == id {
				bucket = &b
				break
			}
		}
		if bucket == nil {
			s.notFound(w, r)
			return
		}
		data := s.baseData(r, p, bucket.Name, "storage")
		data["Bucket"] = bucket
		data["Files"] = s.bucketFiles(r.Context(), p, id)
		s.render(w, r, "bucket", data)
	case len(rest) == 2 && rest[1] == "delete":
		if !s.parseForm(w, r) {
			return
		}
		id := rest[0]
		s.mutate(w, r, query.Guard{Entity: "bucket", ID: id, Op: "delete"}, storagePath, "Bucket deleted",
			func(ctx context.Context) error {
				return s.api.DeleteBucket(ctx, p.sess.Token, id)
			}, s.key(p, query.CollectionBuckets), s.key(p, bucketFilesCollection(id)))
	default:
		s.notFound(w, r)
	}
}
