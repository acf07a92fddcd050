package sessionmap

import (
	"context"
	"encoding/json"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"gridd/pkg/types"
)

const sessionKeyPrefix = "/gridd/sessions/"

// Etcd backs the session map with an external shared store so multiple
// distributor instances can route to the same sessions. The read/write
// operations replace the in-memory map one-for-one; contracts are
// unchanged.
type Etcd struct {
	client *clientv3.Client
}

func NewEtcd(endpoints []string) (*Etcd, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &Etcd{client: cli}, nil
}

func (e *Etcd) Close() error { return e.client.Close() }

func (e *Etcd) Add(ctx context.Context, sess types.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = e.client.Put(ctx, sessionKeyPrefix+string(sess.ID), string(b))
	return err
}

func (e *Etcd) Get(ctx context.Context, id types.SessionID) (types.Session, error) {
	resp, err := e.client.Get(ctx, sessionKeyPrefix+string(id))
	if err != nil {
		return types.Session{}, err
	}
	if resp.Count == 0 {
		return types.Session{}, ErrNotFound(id)
	}
	var sess types.Session
	if err := json.Unmarshal(resp.Kvs[0].Value, &sess); err != nil {
		return types.Session{}, err
	}
	return sess, nil
}

func (e *Etcd) Remove(ctx context.Context, id types.SessionID) error {
	_, err := e.client.Delete(ctx, sessionKeyPrefix+string(id))
	return err
}

func (e *Etcd) List(ctx context.Context) ([]types.Session, error) {
	resp, err := e.client.Get(ctx, sessionKeyPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	out := make([]types.Session, 0, resp.Count)
	for _, kv := range resp.Kvs {
		var sess types.Session
		if err := json.Unmarshal(kv.Value, &sess); err != nil {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}
