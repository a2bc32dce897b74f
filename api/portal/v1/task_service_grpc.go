package portalv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const TaskService_ServiceName = "portal.v1.TaskService"

// Full method names, as seen by interceptors.
const (
	TaskService_CreateTask_FullMethodName           = "/portal.v1.TaskService/CreateTask"
	TaskService_GetTask_FullMethodName              = "/portal.v1.TaskService/GetTask"
	TaskService_ListTasks_FullMethodName            = "/portal.v1.TaskService/ListTasks"
	TaskService_UpdateTask_FullMethodName           = "/portal.v1.TaskService/UpdateTask"
	TaskService_DeleteTask_FullMethodName           = "/portal.v1.TaskService/DeleteTask"
	TaskService_TransitionTask_FullMethodName       = "/portal.v1.TaskService/TransitionTask"
	TaskService_ListCompletions_FullMethodName      = "/portal.v1.TaskService/ListCompletions"
	TaskService_GetUserStatistics_FullMethodName    = "/portal.v1.TaskService/GetUserStatistics"
	TaskService_GetLeaderboard_FullMethodName       = "/portal.v1.TaskService/GetLeaderboard"
	TaskService_ListNotifications_FullMethodName    = "/portal.v1.TaskService/ListNotifications"
	TaskService_MarkNotificationRead_FullMethodName = "/portal.v1.TaskService/MarkNotificationRead"
	TaskService_WatchTasks_FullMethodName           = "/portal.v1.TaskService/WatchTasks"
)

// TaskServiceServer is the server API for TaskService.
type TaskServiceServer interface {
	CreateTask(context.Context, *CreateTaskRequest) (*CreateTaskResponse, error)
	GetTask(context.Context, *GetTaskRequest) (*GetTaskResponse, error)
	ListTasks(context.Context, *ListTasksRequest) (*ListTasksResponse, error)
	UpdateTask(context.Context, *UpdateTaskRequest) (*UpdateTaskResponse, error)
	DeleteTask(context.Context, *DeleteTaskRequest) (*DeleteTaskResponse, error)
	TransitionTask(context.Context, *TransitionTaskRequest) (*TransitionTaskResponse, error)
	ListCompletions(context.Context, *ListCompletionsRequest) (*ListCompletionsResponse, error)
	GetUserStatistics(context.Context, *GetUserStatisticsRequest) (*GetUserStatisticsResponse, error)
	GetLeaderboard(context.Context, *GetLeaderboardRequest) (*GetLeaderboardResponse, error)
	ListNotifications(context.Context, *ListNotificationsRequest) (*ListNotificationsResponse, error)
	MarkNotificationRead(context.Context, *MarkNotificationReadRequest) (*MarkNotificationReadResponse, error)
	WatchTasks(*WatchTasksRequest, TaskService_WatchTasksServer) error
}

// UnimplementedTaskServiceServer must be embedded to have forward compatible
// implementations.
type UnimplementedTaskServiceServer struct{}

func (UnimplementedTaskServiceServer) CreateTask(context.Context, *CreateTaskRequest) (*CreateTaskResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateTask not implemented")
}
func (UnimplementedTaskServiceServer) GetTask(context.Context, *GetTaskRequest) (*GetTaskResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTask not implemented")
}
func (UnimplementedTaskServiceServer) ListTasks(context.Context, *ListTasksRequest) (*ListTasksResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListTasks not implemented")
}
func (UnimplementedTaskServiceServer) UpdateTask(context.Context, *UpdateTaskRequest) (*UpdateTaskResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateTask not implemented")
}
func (UnimplementedTaskServiceServer) DeleteTask(context.Context, *DeleteTaskRequest) (*DeleteTaskResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteTask not implemented")
}
func (UnimplementedTaskServiceServer) TransitionTask(context.Context, *TransitionTaskRequest) (*TransitionTaskResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method TransitionTask not implemented")
}
func (UnimplementedTaskServiceServer) ListCompletions(context.Context, *ListCompletionsRequest) (*ListCompletionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListCompletions not implemented")
}
func (UnimplementedTaskServiceServer) GetUserStatistics(context.Context, *GetUserStatisticsRequest) (*GetUserStatisticsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetUserStatistics not implemented")
}
func (UnimplementedTaskServiceServer) GetLeaderboard(context.Context, *GetLeaderboardRequest) (*GetLeaderboardResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetLeaderboard not implemented")
}
func (UnimplementedTaskServiceServer) ListNotifications(context.Context, *ListNotificationsRequest) (*ListNotificationsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListNotifications not implemented")
}
func (UnimplementedTaskServiceServer) MarkNotificationRead(context.Context, *MarkNotificationReadRequest) (*MarkNotificationReadResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method MarkNotificationRead not implemented")
}
func (UnimplementedTaskServiceServer) WatchTasks(*WatchTasksRequest, TaskService_WatchTasksServer) error {
	return status.Error(codes.Unimplemented, "method WatchTasks not implemented")
}

// RegisterTaskServiceServer registers srv on s.
func RegisterTaskServiceServer(s grpc.ServiceRegistrar, srv TaskServiceServer) {
	s.RegisterService(&TaskService_ServiceDesc, srv)
}

// unaryMethod adapts a typed server method to the Struct based transport.
// Interceptors see the request as *structpb.Struct.
func unaryMethod[Req, Resp any](name string, call func(TaskServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + TaskService_ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				typed := new(Req)
				if err := Decode(req.(*structpb.Struct), typed); err != nil {
					return nil, status.Errorf(codes.InvalidArgument, "malformed %s request: %v", name, err)
				}
				resp, err := call(srv.(TaskServiceServer), ctx, typed)
				if err != nil {
					return nil, err
				}
				out, err := Encode(resp)
				if err != nil {
					return nil, status.Error(codes.Internal, err.Error())
				}
				return out, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func _TaskService_WatchTasks_Handler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	req := new(WatchTasksRequest)
	if err := Decode(in, req); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed WatchTasks request: %v", err)
	}
	return srv.(TaskServiceServer).WatchTasks(req, &taskServiceWatchTasksServer{stream})
}

// TaskService_WatchTasksServer is the server side of the WatchTasks stream.
type TaskService_WatchTasksServer interface {
	Send(*WatchTasksResponse) error
	grpc.ServerStream
}

type taskServiceWatchTasksServer struct {
	grpc.ServerStream
}

func (x *taskServiceWatchTasksServer) Send(m *WatchTasksResponse) error {
	out, err := Encode(m)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return x.ServerStream.SendMsg(out)
}

// TaskService_ServiceDesc is the grpc.ServiceDesc for TaskService.
var TaskService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: TaskService_ServiceName,
	HandlerType: (*TaskServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateTask", TaskServiceServer.CreateTask),
		unaryMethod("GetTask", TaskServiceServer.GetTask),
		unaryMethod("ListTasks", TaskServiceServer.ListTasks),
		unaryMethod("UpdateTask", TaskServiceServer.UpdateTask),
		unaryMethod("DeleteTask", TaskServiceServer.DeleteTask),
		unaryMethod("TransitionTask", TaskServiceServer.TransitionTask),
		unaryMethod("ListCompletions", TaskServiceServer.ListCompletions),
		unaryMethod("GetUserStatistics", TaskServiceServer.GetUserStatistics),
		unaryMethod("GetLeaderboard", TaskServiceServer.GetLeaderboard),
		unaryMethod("ListNotifications", TaskServiceServer.ListNotifications),
		unaryMethod("MarkNotificationRead", TaskServiceServer.MarkNotificationRead),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchTasks",
			Handler:       _TaskService_WatchTasks_Handler,
			ServerStreams: true,
		},
	},
}

// TaskServiceClient is the client API for TaskService.
type TaskServiceClient interface {
	CreateTask(ctx context.Context, in *CreateTaskRequest, opts ...grpc.CallOption) (*CreateTaskResponse, error)
	GetTask(ctx context.Context, in *GetTaskRequest, opts ...grpc.CallOption) (*GetTaskResponse, error)
	ListTasks(ctx context.Context, in *ListTasksRequest, opts ...grpc.CallOption) (*ListTasksResponse, error)
	UpdateTask(ctx context.Context, in *UpdateTaskRequest, opts ...grpc.CallOption) (*UpdateTaskResponse, error)
	DeleteTask(ctx context.Context, in *DeleteTaskRequest, opts ...grpc.CallOption) (*DeleteTaskResponse, error)
	TransitionTask(ctx context.Context, in *TransitionTaskRequest, opts ...grpc.CallOption) (*TransitionTaskResponse, error)
	ListCompletions(ctx context.Context, in *ListCompletionsRequest, opts ...grpc.CallOption) (*ListCompletionsResponse, error)
	GetUserStatistics(ctx context.Context, in *GetUserStatisticsRequest, opts ...grpc.CallOption) (*GetUserStatisticsResponse, error)
	GetLeaderboard(ctx context.Context, in *GetLeaderboardRequest, opts ...grpc.CallOption) (*GetLeaderboardResponse, error)
	ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*ListNotificationsResponse, error)
	MarkNotificationRead(ctx context.Context, in *MarkNotificationReadRequest, opts ...grpc.CallOption) (*MarkNotificationReadResponse, error)
	WatchTasks(ctx context.Context, in *WatchTasksRequest, opts ...grpc.CallOption) (TaskService_WatchTasksClient, error)
}

type taskServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTaskServiceClient(cc grpc.ClientConnInterface) TaskServiceClient {
	return &taskServiceClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	req, err := Encode(in)
	if err != nil {
		return nil, err
	}
	reply := new(structpb.Struct)
	if err := cc.Invoke(ctx, method, req, reply, opts...); err != nil {
		return nil, err
	}
	out := new(Resp)
	if err := Decode(reply, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskServiceClient) CreateTask(ctx context.Context, in *CreateTaskRequest, opts ...grpc.CallOption) (*CreateTaskResponse, error) {
	return invoke[CreateTaskResponse](ctx, c.cc, TaskService_CreateTask_FullMethodName, in, opts)
}

func (c *taskServiceClient) GetTask(ctx context.Context, in *GetTaskRequest, opts ...grpc.CallOption) (*GetTaskResponse, error) {
	return invoke[GetTaskResponse](ctx, c.cc, TaskService_GetTask_FullMethodName, in, opts)
}

func (c *taskServiceClient) ListTasks(ctx context.Context, in *ListTasksRequest, opts ...grpc.CallOption) (*ListTasksResponse, error) {
	return invoke[ListTasksResponse](ctx, c.cc, TaskService_ListTasks_FullMethodName, in, opts)
}

func (c *taskServiceClient) UpdateTask(ctx context.Context, in *UpdateTaskRequest, opts ...grpc.CallOption) (*UpdateTaskResponse, error) {
	return invoke[UpdateTaskResponse](ctx, c.cc, TaskService_UpdateTask_FullMethodName, in, opts)
}

func (c *taskServiceClient) DeleteTask(ctx context.Context, in *DeleteTaskRequest, opts ...grpc.CallOption) (*DeleteTaskResponse, error) {
	return invoke[DeleteTaskResponse](ctx, c.cc, TaskService_DeleteTask_FullMethodName, in, opts)
}

func (c *taskServiceClient) TransitionTask(ctx context.Context, in *TransitionTaskRequest, opts ...grpc.CallOption) (*TransitionTaskResponse, error) {
	return invoke[TransitionTaskResponse](ctx, c.cc, TaskService_TransitionTask_FullMethodName, in, opts)
}

func (c *taskServiceClient) ListCompletions(ctx context.Context, in *ListCompletionsRequest, opts ...grpc.CallOption) (*ListCompletionsResponse, error) {
	return invoke[ListCompletionsResponse](ctx, c.cc, TaskService_ListCompletions_FullMethodName, in, opts)
}

func (c *taskServiceClient) GetUserStatistics(ctx context.Context, in *GetUserStatisticsRequest, opts ...grpc.CallOption) (*GetUserStatisticsResponse, error) {
	return invoke[GetUserStatisticsResponse](ctx, c.cc, TaskService_GetUserStatistics_FullMethodName, in, opts)
}

func (c *taskServiceClient) GetLeaderboard(ctx context.Context, in *GetLeaderboardRequest, opts ...grpc.CallOption) (*GetLeaderboardResponse, error) {
	return invoke[GetLeaderboardResponse](ctx, c.cc, TaskService_GetLeaderboard_FullMethodName, in, opts)
}

func (c *taskServiceClient) ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*ListNotificationsResponse, error) {
	return invoke[ListNotificationsResponse](ctx, c.cc, TaskService_ListNotifications_FullMethodName, in, opts)
}

func (c *taskServiceClient) MarkNotificationRead(ctx context.Context, in *MarkNotificationReadRequest, opts ...grpc.CallOption) (*MarkNotificationReadResponse, error) {
	return invoke[MarkNotificationReadResponse](ctx, c.cc, TaskService_MarkNotificationRead_FullMethodName, in, opts)
}

func (c *taskServiceClient) WatchTasks(ctx context.Context, in *WatchTasksRequest, opts ...grpc.CallOption) (TaskService_WatchTasksClient, error) {
	req, err := Encode(in)
	if err != nil {
		return nil, err
	}
	stream, err := c.cc.NewStream(ctx, &TaskService_ServiceDesc.Streams[0], TaskService_WatchTasks_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &taskServiceWatchTasksClient{stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// TaskService_WatchTasksClient is the client side of the WatchTasks stream.
type TaskService_WatchTasksClient interface {
	Recv() (*WatchTasksResponse, error)
	grpc.ClientStream
}

type taskServiceWatchTasksClient struct {
	grpc.ClientStream
}

func (x *taskServiceWatchTasksClient) Recv() (*WatchTasksResponse, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	out := new(WatchTasksResponse)
	if err := Decode(m, out); err != nil {
		return nil, err
	}
	return out, nil
}
