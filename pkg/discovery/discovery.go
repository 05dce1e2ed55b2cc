// Package discovery announces storefront processes in etcd so load
// balancers and operators can find live API and worker instances.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/example/storefront/pkg/config"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const defaultLeaseTTL = 30

type ServiceDiscovery struct {
	client *clientv3.Client
	config *config.EtcdConfig
	logger *zap.Logger

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID
}

// ServiceInstance is one running process. Role is "api" or "worker".
type ServiceInstance struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (i *ServiceInstance) Addr() string {
	return net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
}

func NewServiceDiscovery(cfg *config.EtcdConfig, logger *zap.Logger) (*ServiceDiscovery, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &ServiceDiscovery{
		client: cli,
		config: cfg,
		logger: logger,
		leases: make(map[string]clientv3.LeaseID),
	}, nil
}

func servicePrefix(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + name + "/"
}

func instanceKey(prefix string, instance *ServiceInstance) string {
	return servicePrefix(prefix, instance.Name) + instance.Role + "/" + instance.Addr()
}

func (sd *ServiceDiscovery) leaseTTL() int64 {
	if sd.config.LeaseTTL > 0 {
		return sd.config.LeaseTTL
	}
	return defaultLeaseTTL
}

// Register puts the instance under a lease and keeps the lease alive until
// ctx is done or Deregister is called.
func (sd *ServiceDiscovery) Register(ctx context.Context, instance *ServiceInstance) error {
	key := instanceKey(sd.config.Prefix, instance)
	value, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to encode instance: %w", err)
	}

	lease, err := sd.client.Grant(ctx, sd.leaseTTL())
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	if _, err := sd.client.Put(ctx, key, string(value), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, err := sd.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("failed to keep alive: %w", err)
	}

	sd.mu.Lock()
	sd.leases[key] = lease.ID
	sd.mu.Unlock()

	go func() {
		for range ch {
		}
		if ctx.Err() == nil {
			sd.logger.Warn("Service lease lost", zap.String("key", key))
		}
	}()

	sd.logger.Info("Service registered", zap.String("key", key), zap.Int64("ttl", sd.leaseTTL()))
	return nil
}

func (sd *ServiceDiscovery) Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error) {
	resp, err := sd.client.Get(ctx, servicePrefix(sd.config.Prefix, serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover service: %w", err)
	}

	instances := make([]*ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		instance, err := decodeInstance(kv.Value)
		if err != nil {
			sd.logger.Warn("Skipping malformed instance", zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Registered reports an error unless instance is currently listed under
// its service name.
func (sd *ServiceDiscovery) Registered(ctx context.Context, instance *ServiceInstance) error {
	instances, err := sd.Discover(ctx, instance.Name)
	if err != nil {
		return err
	}
	if !containsInstance(instances, instance) {
		return fmt.Errorf("instance %s/%s is not registered", instance.Role, instance.Addr())
	}
	return nil
}

// containsInstance matches on address, and on role when the listed entry
// carries one.
func containsInstance(instances []*ServiceInstance, self *ServiceInstance) bool {
	for _, i := range instances {
		if i.Addr() != self.Addr() {
			continue
		}
		if i.Role == "" || i.Role == self.Role {
			return true
		}
	}
	return false
}

// decodeInstance also accepts bare "host:port" values.
func decodeInstance(value []byte) (*ServiceInstance, error) {
	var instance ServiceInstance
	if err := json.Unmarshal(value, &instance); err == nil {
		return &instance, nil
	}

	host, port, err := net.SplitHostPort(string(value))
	if err != nil {
		return nil, err
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("port %q: %w", port, err)
	}
	return &ServiceInstance{Host: host, Port: p}, nil
}

func (sd *ServiceDiscovery) Deregister(ctx context.Context, instance *ServiceInstance) error {
	key := instanceKey(sd.config.Prefix, instance)

	sd.mu.Lock()
	leaseID, ok := sd.leases[key]
	delete(sd.leases, key)
	sd.mu.Unlock()

	if ok {
		if _, err := sd.client.Revoke(ctx, leaseID); err != nil {
			return fmt.Errorf("failed to revoke lease: %w", err)
		}
		return nil
	}
	if _, err := sd.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	return nil
}

func (sd *ServiceDiscovery) Close() error {
	return sd.client.Close()
}
