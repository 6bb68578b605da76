package lifecycle

import (
	"context"
	"maps"

	"go.uber.org/zap"

	"github.com/sghaida/scr/component"
)

// componentContext is the ComponentContext handed to activate and deactivate.
type componentContext struct {
	ctx context.Context
	c   *Configuration
}

func (c *Configuration) newContext(ctx context.Context) component.ComponentContext {
	return &componentContext{ctx: ctx, c: c}
}

// Context returns a ComponentContext for this configuration. Lazy service lookups
// made through it use ctx.
func (c *Configuration) Context(ctx context.Context) component.ComponentContext {
	return c.newContext(ctx)
}

func (cc *componentContext) ComponentName() string { return cc.c.desc.Name() }

func (cc *componentContext) Properties() map[string]any { return maps.Clone(cc.c.props) }

func (cc *componentContext) LocateService(reference string) (any, bool) {
	objs := cc.LocateServices(reference)
	if len(objs) == 0 {
		return nil, false
	}
	return objs[0], true
}

func (cc *componentContext) LocateServices(reference string) []any {
	var out []any
	for _, b := range cc.c.bindingsOf(reference) {
		obj := b.object
		if obj == nil {
			var err error
			if obj, err = cc.c.guard.Acquire(cc.ctx, b.ref, b.sref); err != nil {
				cc.c.logger.Debug("cannot locate service",
					zap.String("reference", reference), zap.Error(err))
				continue
			}
			cc.c.fill(reference, b.sref.ServiceID(), obj)
		}
		out = append(out, obj)
	}
	return out
}
