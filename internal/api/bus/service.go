package bus

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/config"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
)

// Service owns the session bus connection and the exported object
type Service struct {
	conn   *dbus.Conn
	object *Object
	name   string

	signals chan *dbus.Signal
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	logger *zap.Logger
}

// Export connects to the session bus, exports the launcher object and
// claims the well-known name
func Export(cfg config.DBusConfig, l Launcher, logger *zap.Logger, metrics *monitoring.Metrics) (*Service, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	s, err := export(conn, cfg, l, logger, metrics)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func export(conn *dbus.Conn, cfg config.DBusConfig, l Launcher, logger *zap.Logger, metrics *monitoring.Metrics) (*Service, error) {
	path := dbus.ObjectPath(cfg.Path)
	if !path.IsValid() {
		return nil, fmt.Errorf("invalid object path %q", cfg.Path)
	}

	obj := NewObject(l, conn, path, logger).WithMetrics(metrics)

	if err := conn.ExportWithMap(obj, methodNames, path, Interface); err != nil {
		return nil, fmt.Errorf("failed to export launcher object: %w", err)
	}
	node := introspection(path)
	if err := conn.Export(introspect.NewIntrospectable(&node), path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("failed to export introspection: %w", err)
	}

	s := &Service{
		conn:    conn,
		object:  obj,
		name:    cfg.Name,
		signals: make(chan *dbus.Signal, 8),
		done:    make(chan struct{}),
		logger:  logger,
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameLost"),
	); err != nil {
		logger.Warn("Failed to watch bus name ownership", zap.Error(err))
	}
	conn.Signal(s.signals)

	reply, err := conn.RequestName(cfg.Name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to request bus name %s: %w", cfg.Name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("bus name %s already taken", cfg.Name)
	}

	s.wg.Add(1)
	go s.watchName()

	logger.Info("D-Bus interface exported",
		zap.String("name", cfg.Name),
		zap.String("path", string(path)))
	return s, nil
}

// Object returns the exported object, which doubles as a lifecycle observer
func (s *Service) Object() *Object {
	return s.object
}

// Close releases the bus name and closes the connection
func (s *Service) Close() {
	s.once.Do(func() {
		close(s.done)
		if _, err := s.conn.ReleaseName(s.name); err != nil {
			s.logger.Warn("Failed to release bus name", zap.String("name", s.name), zap.Error(err))
		}
		s.conn.RemoveSignal(s.signals)
		s.wg.Wait()
		_ = s.conn.Close()
	})
}

func (s *Service) watchName() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case sig, ok := <-s.signals:
			if !ok {
				return
			}
			if sig.Name != "org.freedesktop.DBus.NameLost" || len(sig.Body) == 0 {
				continue
			}
			if name, _ := sig.Body[0].(string); name == s.name {
				s.logger.Error("Lost D-Bus name", zap.String("name", name))
			}
		}
	}
}

func introspection(path dbus.ObjectPath) introspect.Node {
	appID := []introspect.Arg{{Name: "app_id", Type: "s"}}

	return introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: Interface,
				Methods: []introspect.Method{
					{
						Name: "start",
						Args: []introspect.Arg{{Name: "app_id", Type: "s", Direction: "in"}},
					},
					{
						Name: "listApplications",
						Args: []introspect.Arg{
							{Name: "graphical", Type: "b", Direction: "in"},
							{Name: "apps", Type: "av", Direction: "out"},
						},
					},
				},
				Signals: []introspect.Signal{
					{Name: "started", Args: appID},
					{Name: "terminated", Args: appID},
				},
			},
		},
	}
}
